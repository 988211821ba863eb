package models

import (
	"time"
)

// Achievement: static config (seeded into DB, editable by admins)
type Achievement struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Description    string    `json:"description"`
	PointsRequired int       `gorm:"not null" json:"points_required"`
	BadgeIconURL   string    `gorm:"type:text" json:"badge_icon_url"` // e.g., R2 URL to SVG/png
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: awarded instance, exactly one per (user, achievement)
type UserAchievement struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ExternalUserID string    `gorm:"not null;index;uniqueIndex:idx_user_achievement" json:"external_user_id"`
	AchievementID  string    `gorm:"not null;index;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	EarnedAt       time.Time `gorm:"autoCreateTime" json:"earned_at"`

	Achievement Achievement `json:"achievement,omitempty" gorm:"foreignKey:AchievementID"`
}

// Default ladder seeded on startup when the achievements table is empty
var DefaultAchievements = []Achievement{
	{
		Name:           "First Steps",
		Description:    "Earn your first points by completing a challenge",
		PointsRequired: 10,
	},
	{
		Name:           "Getting Warmer",
		Description:    "Reach 100 points",
		PointsRequired: 100,
	},
	{
		Name:           "Problem Solver",
		Description:    "Reach 500 points",
		PointsRequired: 500,
	},
	{
		Name:           "Code Machine",
		Description:    "Reach 1000 points",
		PointsRequired: 1000,
	},
	{
		Name:           "Grandmaster",
		Description:    "Reach 5000 points",
		PointsRequired: 5000,
	},
}
