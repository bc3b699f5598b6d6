package models

import (
	"time"

	"gorm.io/gorm"
)

// EcoUser is a local snapshot of student data needed for quests and challenges.
// Owned and managed solely by the Eco-Quest service.
// Populated via sync worker from the campus Profile Service's user table;
// the ledger fields (points, counters) are mutated only by this service.
type EcoUser struct {
	ID                string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username          string  `gorm:"index;not null" json:"username"`
	Email             string  `json:"email,omitempty"`
	Department        string  `gorm:"index" json:"department"` // e.g., "School of Engineering"
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`

	// Ledger — single canonical balance, additive-only from the review flow
	Points int64 `gorm:"default:0" json:"points"`

	// Activity counters (denormalized for badge thresholds)
	QuestsCompleted  int64 `gorm:"default:0" json:"quests_completed"`
	ChallengesJoined int64 `gorm:"default:0" json:"challenges_joined"`

	LastSeen *time.Time `json:"last_seen,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
