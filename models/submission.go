package models

import (
	"time"
)

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Submission is one participant's evidence-backed claim of quest completion.
// Uniqueness is per (quest, user, attempt): a new attempt may only be created
// after the previous one was rejected. Once created, status is mutated only
// by the review flow — submissions are never deleted.
type Submission struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	QuestID        string `gorm:"not null;index;uniqueIndex:idx_quest_user_attempt" json:"quest_id"`
	ExternalUserID string `gorm:"not null;index;uniqueIndex:idx_quest_user_attempt" json:"external_user_id"`
	Attempt        int    `gorm:"not null;default:1;uniqueIndex:idx_quest_user_attempt" json:"attempt"`

	ProofURL   string `gorm:"type:text" json:"proof_url"`
	Reflection string `gorm:"type:text" json:"reflection"`

	Status          SubmissionStatus `gorm:"not null;default:'pending';index" json:"status"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`

	SubmittedAt time.Time  `gorm:"autoCreateTime;index" json:"submitted_at"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"` // external user id of the reviewer
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`

	Quest *Quest `gorm:"foreignKey:QuestID" json:"quest,omitempty"`
}
