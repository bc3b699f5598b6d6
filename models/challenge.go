package models

import (
	"time"

	"gorm.io/gorm"
)

// ChallengeStatus indicates the lifecycle status of a community challenge
type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "draft"
	ChallengeStatusPublished ChallengeStatus = "published"
	ChallengeStatusCompleted ChallengeStatus = "completed"
	ChallengeStatusExpired   ChallengeStatus = "expired"
	ChallengeStatusArchived  ChallengeStatus = "archived"
)

// CommunityChallenge is a collective goal: participants pool the points they
// earn from approved quest submissions inside the challenge window. Progress
// is recomputed by the challenge progress worker, not on the request path.
type CommunityChallenge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`

	TargetPoints    int64 `gorm:"not null" json:"target_points"`
	ProgressPoints  int64 `gorm:"default:0" json:"progress_points"` // denormalized, worker-maintained
	MaxParticipants int   `gorm:"default:0" json:"max_participants"`

	StartAt time.Time  `gorm:"not null" json:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty"`

	Status      ChallengeStatus `gorm:"not null;default:'draft';index" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	CreatedBy string `gorm:"index" json:"created_by"`

	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChallengeParticipant joins a user to a challenge, at most once per pair.
type ChallengeParticipant struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengeID       string    `gorm:"not null;uniqueIndex:idx_challenge_user" json:"challenge_id"`
	ExternalUserID    string    `gorm:"not null;index;uniqueIndex:idx_challenge_user" json:"external_user_id"`
	PointsContributed int64     `gorm:"default:0" json:"points_contributed"` // worker-maintained
	JoinedAt          time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
