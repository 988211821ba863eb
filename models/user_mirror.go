package models

import (
	"time"

	"gorm.io/gorm"
)

// UserMirror is a read-only local copy of identity-service profiles, kept
// fresh by the user sync worker. Used to decorate leaderboard rows and
// comments with display names without a cross-service call per request.
type UserMirror struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	ExternalUserID    string         `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username          string         `gorm:"index" json:"username"`
	Email             string         `json:"email"`
	FirstName         *string        `json:"first_name,omitempty"`
	LastName          *string        `json:"last_name,omitempty"`
	ProfilePictureURL *string        `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
