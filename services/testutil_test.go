package services

import (
	"fmt"
	"strings"
	"testing"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database with the full schema.
// cache=shared keeps the database alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.EcoUser{},
		&models.Quest{},
		&models.QuestCompletion{},
		&models.Submission{},
		&models.Notification{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.CommunityChallenge{},
		&models.ChallengeParticipant{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, externalID, username, department string, points int64) *models.EcoUser {
	t.Helper()
	user := &models.EcoUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       username,
		Department:     department,
		Points:         points,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPublishedQuest(t *testing.T, db *gorm.DB, title string, points int64, maxParticipants int) *models.Quest {
	t.Helper()
	quest := &models.Quest{
		ID:              uuid.NewString(),
		Title:           title,
		Slug:            strings.ToLower(strings.ReplaceAll(title, " ", "-")) + "-" + uuid.NewString()[:8],
		Points:          points,
		MaxParticipants: maxParticipants,
		IsActive:        true,
		Status:          models.QuestStatusPublished,
		CreatedBy:       "officer-1",
	}
	require.NoError(t, db.Create(quest).Error)
	return quest
}

func newSubmissionStack(db *gorm.DB) (*SubmissionService, *LedgerService, *NotificationService) {
	ledger := NewLedgerService(db)
	notifications := NewNotificationService(db)
	badges := NewBadgeService(db)
	return NewSubmissionService(db, ledger, notifications, badges), ledger, notifications
}

func userBalance(t *testing.T, db *gorm.DB, externalID string) int64 {
	t.Helper()
	var user models.EcoUser
	require.NoError(t, db.Where("external_user_id = ?", externalID).First(&user).Error)
	return user.Points
}

func rosterSize(t *testing.T, db *gorm.DB, questID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.QuestCompletion{}).Where("quest_id = ?", questID).Count(&n).Error)
	return n
}

func notificationsOfType(t *testing.T, db *gorm.DB, externalID string, typ models.NotificationType) []models.Notification {
	t.Helper()
	var notifs []models.Notification
	require.NoError(t, db.Where("external_user_id = ? AND type = ?", externalID, typ).Find(&notifs).Error)
	return notifs
}
