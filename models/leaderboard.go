package models

import "time"

// LeaderboardEntry holds one user's aggregate standings (denormalized from
// completed progress rows; refreshed from source of truth, never incremented).
// Only the leaderboard service writes TotalPoints/ChallengesCompleted/Ranking.
type LeaderboardEntry struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	ExternalUserID      string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	TotalPoints         int       `json:"total_points" gorm:"default:0"`
	ChallengesCompleted int       `json:"challenges_completed" gorm:"default:0"`
	Ranking             int       `json:"ranking" gorm:"default:0;index"` // 1-based, contiguous across all rows
	LastUpdated         time.Time `json:"last_updated"`

	Timestamps

	// Decorated from the user mirror, not stored here
	Username string `json:"username,omitempty" gorm:"-"`
}
