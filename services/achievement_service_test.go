package services

import (
	"testing"

	"challenge-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardQualifyingOnFirstCompletion(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "Two Sum", 50, "x=1")
	achievement := seedAchievement(t, db, "First Steps", 40)

	// not earned before the completion
	var count int64
	db.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ?", "user-1", achievement.ID).
		Count(&count)
	require.Equal(t, int64(0), count)

	_, _, outcome, err := svc.SubmitChallenge("user-1", challenge.ID, "x=1", 0)
	require.NoError(t, err)
	require.Equal(t, NewlyCompleted, outcome)

	db.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ?", "user-1", achievement.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAwardQualifyingIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAchievementService(db)
	progressSvc := newTestProgressService(db)
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "Two Sum", 50, "x=1")
	seedAchievement(t, db, "First Steps", 40)

	_, _, _, err := progressSvc.SubmitChallenge("user-1", challenge.ID, "x=1", 0)
	require.NoError(t, err)

	var before models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&before).Error)

	// re-running with the same totals awards nothing new
	awarded, err := svc.AwardQualifying("user-1")
	require.NoError(t, err)
	assert.Empty(t, awarded)

	var after models.UserAchievement
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&after).Error)
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, before.EarnedAt.Equal(after.EarnedAt))
}

func TestAwardQualifyingThresholdBoundary(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "Two Sum", 50, "x=1")
	exact := seedAchievement(t, db, "Exactly Fifty", 50)
	above := seedAchievement(t, db, "Sixty Club", 60)

	_, _, _, err := svc.SubmitChallenge("user-1", challenge.ID, "x=1", 0)
	require.NoError(t, err)

	var count int64
	db.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ?", "user-1", exact.ID).
		Count(&count)
	assert.Equal(t, int64(1), count, "points_required == total must qualify")

	db.Model(&models.UserAchievement{}).
		Where("external_user_id = ? AND achievement_id = ?", "user-1", above.ID).
		Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAwardQualifyingCatchesUpAcrossThresholds(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	big := seedChallenge(t, db, category.ID, "Marathon", 500, "run")
	seedAchievement(t, db, "Ten", 10)
	seedAchievement(t, db, "Hundred", 100)
	seedAchievement(t, db, "Five Hundred", 500)

	_, _, _, err := svc.SubmitChallenge("user-1", big.ID, "run", 0)
	require.NoError(t, err)

	var count int64
	db.Model(&models.UserAchievement{}).Where("external_user_id = ?", "user-1").Count(&count)
	assert.Equal(t, int64(3), count, "one completion can unlock several thresholds")
}

func TestAvailableAchievementsEarnedFlag(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAchievementService(db)
	progressSvc := newTestProgressService(db)
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "Two Sum", 50, "x=1")
	low := seedAchievement(t, db, "Low", 10)
	high := seedAchievement(t, db, "High", 1000)

	_, _, _, err := progressSvc.SubmitChallenge("user-1", challenge.ID, "x=1", 0)
	require.NoError(t, err)

	available, err := svc.AvailableAchievements("user-1")
	require.NoError(t, err)
	require.Len(t, available, 2)

	byID := map[string]bool{}
	for _, a := range available {
		byID[a.ID] = a.Earned
	}
	assert.True(t, byID[low.ID])
	assert.False(t, byID[high.ID])
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAchievementService(db)

	require.NoError(t, svc.SeedDefaults())
	require.NoError(t, svc.SeedDefaults())

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	assert.Equal(t, int64(len(models.DefaultAchievements)), count)
}
