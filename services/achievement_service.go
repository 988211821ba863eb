package services

import (
	"log"

	"challenge-platform/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// SeedDefaults inserts the built-in achievement ladder when the table is
// empty. Safe to call on every startup.
func (s *AchievementService) SeedDefaults() error {
	var count int64
	if err := s.DB.Model(&models.Achievement{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, a := range models.DefaultAchievements {
		a.ID = uuid.NewString()
		if err := s.DB.Create(&a).Error; err != nil {
			return err
		}
	}
	log.Printf("🏅 Seeded %d default achievements", len(models.DefaultAchievements))
	return nil
}

// AwardQualifying grants every achievement whose threshold the user's
// completed-points total now meets and which the user does not already hold.
// Award = qualifying − already earned; re-running with the same totals awards
// nothing new. The ON CONFLICT DO NOTHING insert keeps earned_at stable even
// if two completions race.
func (s *AchievementService) AwardQualifying(externalUserID string) ([]models.Achievement, error) {
	totalPoints, err := completedPointsTotal(s.DB, externalUserID)
	if err != nil {
		return nil, err
	}

	var qualifying []models.Achievement
	if err := s.DB.Where("points_required <= ?", totalPoints).Find(&qualifying).Error; err != nil {
		return nil, err
	}
	if len(qualifying) == 0 {
		return nil, nil
	}

	var earnedIDs []string
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Pluck("achievement_id", &earnedIDs).Error; err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(earnedIDs))
	for _, id := range earnedIDs {
		earned[id] = true
	}

	var awarded []models.Achievement
	for _, achievement := range qualifying {
		if earned[achievement.ID] {
			continue
		}
		ua := models.UserAchievement{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			AchievementID:  achievement.ID,
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&ua)
		if res.Error != nil {
			return awarded, res.Error
		}
		if res.RowsAffected == 1 {
			awarded = append(awarded, achievement)
		}
	}
	return awarded, nil
}

// ListAll returns every achievement, lowest threshold first.
func (s *AchievementService) ListAll() ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.Order("points_required ASC").Find(&achievements).Error
	return achievements, err
}

// UserAchievements returns the achievements a user has earned.
func (s *AchievementService) UserAchievements(externalUserID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Preload("Achievement").
		Order("earned_at DESC").
		Find(&rows).Error
	return rows, err
}

// AvailableAchievement decorates an achievement with the caller's earned flag.
type AvailableAchievement struct {
	models.Achievement
	Earned bool `json:"earned"`
}

// AvailableAchievements returns the full ladder with an earned marker per entry.
func (s *AchievementService) AvailableAchievements(externalUserID string) ([]AvailableAchievement, error) {
	achievements, err := s.ListAll()
	if err != nil {
		return nil, err
	}

	var earnedIDs []string
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Pluck("achievement_id", &earnedIDs).Error; err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(earnedIDs))
	for _, id := range earnedIDs {
		earned[id] = true
	}

	result := make([]AvailableAchievement, len(achievements))
	for i, a := range achievements {
		result[i] = AvailableAchievement{Achievement: a, Earned: earned[a.ID]}
	}
	return result, nil
}
