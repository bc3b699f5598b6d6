package models

import (
	"time"
)

// NotificationType tags the event a notification records
type NotificationType string

const (
	NotificationSubmissionApproved NotificationType = "submission_approved"
	NotificationSubmissionRejected NotificationType = "submission_rejected"
	NotificationChallengeCompleted NotificationType = "challenge_completed"
	NotificationBadgeAwarded       NotificationType = "badge_awarded"
	NotificationPointsGranted      NotificationType = "points_granted"
)

// Notification is an immutable, append-only user-facing event record.
// Created by the review flow (and workers) as a side effect; only the
// read-acknowledgement endpoints ever mutate it, and only the Read flag.
type Notification struct {
	ID             string           `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string           `gorm:"index;not null" json:"external_user_id"`
	Type           NotificationType `gorm:"not null;index" json:"type"`
	Title          string           `gorm:"not null" json:"title"`
	Message        string           `gorm:"type:text" json:"message"`
	Payload        string           `gorm:"type:jsonb" json:"payload,omitempty"` // free-form JSON, e.g. {"quest_id": "...", "points_earned": 100}
	Read           bool             `gorm:"default:false;index" json:"read"`
	CreatedAt      time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}
