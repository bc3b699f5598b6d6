package services

import (
	"context"
	"testing"
	"time"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedChallenge(t *testing.T, db *gorm.DB, title string, target int64, startAt time.Time, endAt *time.Time) *models.CommunityChallenge {
	t.Helper()
	ch := &models.CommunityChallenge{
		ID:           uuid.NewString(),
		Title:        title,
		Slug:         uuid.NewString()[:8],
		TargetPoints: target,
		StartAt:      startAt,
		EndAt:        endAt,
		Status:       models.ChallengeStatusPublished,
		CreatedBy:    "officer-1",
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}

func seedParticipant(t *testing.T, db *gorm.DB, challengeID, externalUserID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ChallengeParticipant{
		ID:             uuid.NewString(),
		ChallengeID:    challengeID,
		ExternalUserID: externalUserID,
	}).Error)
}

func seedApprovedSubmission(t *testing.T, db *gorm.DB, questID, externalUserID string, attempt int, reviewedAt time.Time) {
	t.Helper()
	reviewer := "officer-1"
	require.NoError(t, db.Create(&models.Submission{
		ID:             uuid.NewString(),
		QuestID:        questID,
		ExternalUserID: externalUserID,
		Attempt:        attempt,
		ProofURL:       "proof.jpg",
		Status:         models.SubmissionStatusApproved,
		ReviewedBy:     &reviewer,
		ReviewedAt:     &reviewedAt,
	}).Error)
}

func TestRecomputeProgress(t *testing.T) {
	db := newTestDB(t)
	svc := NewChallengeService(db, NewNotificationService(db), nil)

	start := time.Now().Add(-time.Hour)
	ch := seedChallenge(t, db, "Green Week", 150, start, nil)
	seedUser(t, db, "student-1", "ana", "", 0)
	seedParticipant(t, db, ch.ID, "student-1")

	questA := seedPublishedQuest(t, db, "Quest A", 100, 0)
	questB := seedPublishedQuest(t, db, "Quest B", 75, 0)
	seedApprovedSubmission(t, db, questA.ID, "student-1", 1, time.Now().Add(-time.Minute))

	require.NoError(t, svc.RecomputeProgress(context.Background()))

	var reloaded models.CommunityChallenge
	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, int64(100), reloaded.ProgressPoints)
	assert.Equal(t, models.ChallengeStatusPublished, reloaded.Status)

	var participant models.ChallengeParticipant
	require.NoError(t, db.Where("challenge_id = ? AND external_user_id = ?", ch.ID, "student-1").First(&participant).Error)
	assert.Equal(t, int64(100), participant.PointsContributed)

	// second approval pushes past the target
	seedApprovedSubmission(t, db, questB.ID, "student-1", 1, time.Now())
	require.NoError(t, svc.RecomputeProgress(context.Background()))

	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, int64(175), reloaded.ProgressPoints)
	assert.Equal(t, models.ChallengeStatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)

	notifs := notificationsOfType(t, db, "student-1", models.NotificationChallengeCompleted)
	assert.Len(t, notifs, 1)
}

func TestRecomputeProgressIgnoresOutsiders(t *testing.T) {
	db := newTestDB(t)
	svc := NewChallengeService(db, NewNotificationService(db), nil)

	ch := seedChallenge(t, db, "Green Week", 500, time.Now().Add(-time.Hour), nil)
	seedUser(t, db, "member", "ana", "", 0)
	seedUser(t, db, "outsider", "ben", "", 0)
	seedParticipant(t, db, ch.ID, "member")

	quest := seedPublishedQuest(t, db, "Quest A", 100, 0)
	seedApprovedSubmission(t, db, quest.ID, "member", 1, time.Now())
	seedApprovedSubmission(t, db, quest.ID, "outsider", 1, time.Now())

	// approvals before the window don't count either
	early := seedPublishedQuest(t, db, "Quest Early", 100, 0)
	seedApprovedSubmission(t, db, early.ID, "member", 1, time.Now().Add(-2*time.Hour))

	require.NoError(t, svc.RecomputeProgress(context.Background()))

	var reloaded models.CommunityChallenge
	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, int64(100), reloaded.ProgressPoints)
}

func TestRecomputeProgressCountsQuestOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewChallengeService(db, NewNotificationService(db), nil)

	ch := seedChallenge(t, db, "Green Week", 500, time.Now().Add(-time.Hour), nil)
	seedUser(t, db, "student-1", "ana", "", 0)
	seedParticipant(t, db, ch.ID, "student-1")

	// rejected attempt overturned to approved after the retry was approved:
	// two approved rows for one (user, quest) pair, one quest's worth of points
	quest := seedPublishedQuest(t, db, "Quest A", 100, 0)
	seedApprovedSubmission(t, db, quest.ID, "student-1", 1, time.Now().Add(-time.Minute))
	seedApprovedSubmission(t, db, quest.ID, "student-1", 2, time.Now())

	require.NoError(t, svc.RecomputeProgress(context.Background()))

	var reloaded models.CommunityChallenge
	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, int64(100), reloaded.ProgressPoints)
}

func TestRecomputeProgressSkipsDeletedQuests(t *testing.T) {
	db := newTestDB(t)
	svc := NewChallengeService(db, NewNotificationService(db), nil)

	ch := seedChallenge(t, db, "Green Week", 500, time.Now().Add(-time.Hour), nil)
	seedUser(t, db, "student-1", "ana", "", 0)
	seedParticipant(t, db, ch.ID, "student-1")

	kept := seedPublishedQuest(t, db, "Quest A", 100, 0)
	deleted := seedPublishedQuest(t, db, "Quest B", 75, 0)
	seedApprovedSubmission(t, db, kept.ID, "student-1", 1, time.Now())
	seedApprovedSubmission(t, db, deleted.ID, "student-1", 1, time.Now())
	require.NoError(t, db.Delete(&models.Quest{}, "id = ?", deleted.ID).Error)

	require.NoError(t, svc.RecomputeProgress(context.Background()))

	var reloaded models.CommunityChallenge
	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, int64(100), reloaded.ProgressPoints)
}

func TestRecomputeProgressExpires(t *testing.T) {
	db := newTestDB(t)
	svc := NewChallengeService(db, NewNotificationService(db), nil)

	end := time.Now().Add(-time.Minute)
	ch := seedChallenge(t, db, "Finished Week", 500, time.Now().Add(-time.Hour), &end)
	seedUser(t, db, "student-1", "ana", "", 0)
	seedParticipant(t, db, ch.ID, "student-1")

	quest := seedPublishedQuest(t, db, "Quest A", 100, 0)
	seedApprovedSubmission(t, db, quest.ID, "student-1", 1, time.Now().Add(-30*time.Minute))

	require.NoError(t, svc.RecomputeProgress(context.Background()))

	var reloaded models.CommunityChallenge
	require.NoError(t, db.First(&reloaded, "id = ?", ch.ID).Error)
	assert.Equal(t, models.ChallengeStatusExpired, reloaded.Status)
	assert.Equal(t, int64(100), reloaded.ProgressPoints)
}
