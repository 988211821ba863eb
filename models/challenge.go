// models/challenge.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

const (
	ChallengeStatusDraft     = "draft"
	ChallengeStatusScheduled = "scheduled"
	ChallengeStatusPublished = "published"
	ChallengeStatusArchived  = "archived"
)

type Challenge struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"not null"`
	Slug        string `json:"slug" gorm:"index"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" gorm:"not null"` // beginner | intermediate | advanced
	Points      int    `json:"points" gorm:"not null"`
	CategoryID  string `json:"category_id" gorm:"not null;index"`

	// 📄 Content
	MarkdownContent string `json:"markdown_content"`
	CodeTemplate    string `json:"code_template"` // starter code shown to the user
	Solution        string `json:"solution"`      // reference solution used for validation
	TimeLimit       int    `json:"time_limit" gorm:"default:0"` // seconds, 0 = no limit

	// 🎛️ Publishing state
	Status    string     `json:"status" gorm:"default:'published'"` // draft | scheduled | published | archived
	PublishAt *time.Time `json:"publish_at"`                        // only used if scheduled

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// 🔗 Relationships
	Category Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Tags     []ChallengeTag `json:"tags,omitempty" gorm:"many2many:challenge_tag_links"`
	Comments []Comment      `json:"comments,omitempty" gorm:"foreignKey:ChallengeID"`
}

type ChallengeTag struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// Comment supports threaded discussion under a challenge (ParentID nil = top level)
type Comment struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	ChallengeID    string    `json:"challenge_id" gorm:"not null;index"`
	ExternalUserID string    `json:"external_user_id" gorm:"not null;index"`
	Text           string    `json:"text" gorm:"not null"`
	ParentID       *string   `json:"parent_id,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`

	Replies []Comment `json:"replies,omitempty" gorm:"foreignKey:ParentID"`
}
