package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestStatus indicates the publishing status of a quest
type QuestStatus string

const (
	QuestStatusDraft     QuestStatus = "draft"
	QuestStatusScheduled QuestStatus = "scheduled"
	QuestStatusPublished QuestStatus = "published"
	QuestStatusArchived  QuestStatus = "archived"
)

// Quest is a defined environmental task with a fixed point reward and
// participant capacity. Metadata is edited by its author; the completions
// roster is appended only by the review flow.
type Quest struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index" json:"category"` // e.g., "recycling", "energy", "water"
	PhotoURL    string `gorm:"type:text" json:"photo_url"`

	Points          int64 `gorm:"not null" json:"points"`
	MaxParticipants int   `gorm:"default:0" json:"max_participants"` // 0 = unlimited
	IsActive        bool  `gorm:"default:true" json:"is_active"`

	Status    QuestStatus `gorm:"not null;default:'draft'" json:"status"`
	PublishAt *time.Time  `json:"publish_at,omitempty"` // for scheduled publishing
	Deadline  *time.Time  `json:"deadline,omitempty"`   // quest deactivates after this

	CreatedBy string `gorm:"index" json:"created_by"` // external user id of the author

	Completions []QuestCompletion `gorm:"foreignKey:QuestID" json:"completions,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// QuestCompletion is one roster entry: a user with an approved completion.
// The unique index is the set-semantics guarantee — each user appears in a
// quest's roster at most once, no matter how often the append runs.
type QuestCompletion struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	QuestID        string    `gorm:"not null;uniqueIndex:idx_quest_user" json:"quest_id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_quest_user" json:"external_user_id"`
	ProofURL       string    `gorm:"type:text" json:"proof_url"`
	CompletedAt    time.Time `gorm:"autoCreateTime" json:"completed_at"`
}
