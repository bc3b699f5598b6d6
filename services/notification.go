package services

import (
	"encoding/json"
	"errors"
	"log"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService is the fire-and-forget sink for user-facing events.
// Emit failures are the caller's problem only insofar as they want to log
// them — they must never roll back the decision that triggered the event.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Emit appends one notification record. payload is marshaled to JSON.
func (s *NotificationService) Emit(externalUserID string, typ models.NotificationType, title, message string, payload map[string]interface{}) error {
	var payloadJSON string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			// malformed payload shouldn't block the record itself
			log.Printf("⚠️ Notification payload marshal failed (type=%s): %v", typ, err)
		} else {
			payloadJSON = string(raw)
		}
	}

	notif := models.Notification{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Type:           typ,
		Title:          title,
		Message:        message,
		Payload:        payloadJSON,
	}
	return s.DB.Create(&notif).Error
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(externalUserID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var notifs []models.Notification
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifs).Error
	return notifs, err
}

// UnreadCount returns how many unread notifications the user has.
func (s *NotificationService) UnreadCount(externalUserID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("external_user_id = ? AND read = ?", externalUserID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag on a single notification owned by the user.
func (s *NotificationService) MarkRead(externalUserID, notificationID string) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND external_user_id = ?", notificationID, externalUserID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flips the read flag on everything unread for the user.
func (s *NotificationService) MarkAllRead(externalUserID string) (int64, error) {
	res := s.DB.Model(&models.Notification{}).
		Where("external_user_id = ? AND read = ?", externalUserID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// IsNotFound reports whether err is the record-not-found case.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
