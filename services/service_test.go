package services

import (
	"fmt"
	"testing"

	"challenge-platform/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database per test. A single connection
// keeps the shared-cache sqlite instance from fighting itself.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Category{},
		&models.ChallengeTag{},
		&models.Challenge{},
		&models.Comment{},
		&models.UserProgress{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.LeaderboardEntry{},
		&models.UserMirror{},
	))
	return db
}

func seedCategory(t *testing.T, db *gorm.DB) models.Category {
	t.Helper()
	category := models.Category{ID: uuid.NewString(), Name: "Algorithms"}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func seedChallenge(t *testing.T, db *gorm.DB, categoryID, title string, points int, solution string) models.Challenge {
	t.Helper()
	challenge := models.Challenge{
		ID:         uuid.NewString(),
		Title:      title,
		Difficulty: models.DifficultyBeginner,
		Points:     points,
		CategoryID: categoryID,
		Solution:   solution,
		Status:     models.ChallengeStatusPublished,
	}
	require.NoError(t, db.Create(&challenge).Error)
	return challenge
}

func seedAchievement(t *testing.T, db *gorm.DB, name string, pointsRequired int) models.Achievement {
	t.Helper()
	achievement := models.Achievement{
		ID:             uuid.NewString(),
		Name:           name,
		PointsRequired: pointsRequired,
	}
	require.NoError(t, db.Create(&achievement).Error)
	return achievement
}

// newTestProgressService wires the full submission pipeline against the test
// database, without a Redis cache.
func newTestProgressService(db *gorm.DB) *ProgressService {
	return NewProgressService(db, NewLeaderboardService(db, nil))
}
