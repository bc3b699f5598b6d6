package services

import (
	"testing"

	"eco-quest-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedBadgeTypesIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)

	require.NoError(t, svc.SeedBadgeTypes())
	require.NoError(t, svc.SeedBadgeTypes())

	var count int64
	require.NoError(t, db.Model(&models.BadgeType{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.BadgeTriggers)), count)
}

func TestAutoAwardBadges(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)
	require.NoError(t, svc.SeedBadgeTypes())

	user := seedUser(t, db, "student-1", "ana", "", 500)
	user.QuestsCompleted = 1
	require.NoError(t, db.Save(user).Error)

	require.NoError(t, svc.AutoAwardBadges("student-1"))

	badges, err := svc.ListUserBadges("student-1")
	require.NoError(t, err)

	codes := make([]string, 0, len(badges))
	for _, b := range badges {
		codes = append(codes, b["code"].(string))
	}
	assert.Contains(t, codes, "WELCOME")
	assert.Contains(t, codes, "FIRST_QUEST")
	assert.Contains(t, codes, "POINTS_500")
	assert.NotContains(t, codes, "QUEST_10")
	assert.NotContains(t, codes, "POINTS_2000")

	// each award produces a notification
	notifs := notificationsOfType(t, db, "student-1", models.NotificationBadgeAwarded)
	assert.Len(t, notifs, len(badges))

	// re-running awards nothing new
	require.NoError(t, svc.AutoAwardBadges("student-1"))
	again, err := svc.ListUserBadges("student-1")
	require.NoError(t, err)
	assert.Len(t, again, len(badges))
}

func TestAutoAwardBadgesUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)
	require.NoError(t, svc.SeedBadgeTypes())

	assert.Error(t, svc.AutoAwardBadges("nobody"))
}
