package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProgressStatusStarted   = "started"
	ProgressStatusSubmitted = "submitted"
	ProgressStatusCompleted = "completed"
	ProgressStatusFailed    = "failed"
)

// UserProgress tracks one user's state on one challenge (unique per pair).
// Only the progress service mutates these rows; completed is terminal.
type UserProgress struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"not null;index;uniqueIndex:idx_user_challenge" json:"external_user_id"` // links to profile service
	ChallengeID    string `gorm:"not null;index;uniqueIndex:idx_user_challenge" json:"challenge_id"`

	Status   string `json:"status" gorm:"default:'started'"` // started | submitted | completed | failed
	Attempts int    `json:"attempts" gorm:"default:0"`

	// Time accounting
	StartTime       time.Time  `json:"start_time"`
	LastAttemptTime *time.Time `json:"last_attempt_time,omitempty"`
	TimeSpent       int        `json:"time_spent" gorm:"default:0"` // accumulated seconds
	CompletedAt     *time.Time `json:"completed_at,omitempty"`      // set once, on first completion

	SubmissionCode string `json:"submission_code" gorm:"type:text"` // last submitted text

	Timestamps

	Challenge Challenge `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
