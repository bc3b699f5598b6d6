package services

import (
	"testing"

	"eco-quest-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	studentID  = "student-1"
	reviewerID = "officer-1"
)

var studentRoles = []string{"student"}

func TestCreateSubmission(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "https://cdn.example/proof.jpg", "picked up 3 bags")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionStatusPending, sub.Status)
	assert.Equal(t, 1, sub.Attempt)
	assert.Nil(t, sub.ReviewedBy)

	// ledger row is created on first touch, with nothing credited yet
	assert.Equal(t, int64(0), userBalance(t, db, studentID))
	assert.Equal(t, int64(0), rosterSize(t, db, quest.ID))
}

func TestCreateSubmissionValidation(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	t.Run("proof required", func(t *testing.T) {
		_, err := svc.Create(studentID, studentRoles, quest.ID, "", "")
		assert.ErrorIs(t, err, ErrProofRequired)
	})

	t.Run("quest not found", func(t *testing.T) {
		_, err := svc.Create(studentID, studentRoles, "00000000-0000-0000-0000-000000000000", "proof.jpg", "")
		assert.ErrorIs(t, err, ErrQuestNotFound)
	})

	t.Run("quest inactive", func(t *testing.T) {
		inactive := seedPublishedQuest(t, db, "Old Quest", 50, 0)
		require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
		_, err := svc.Create(studentID, studentRoles, inactive.ID, "proof.jpg", "")
		assert.ErrorIs(t, err, ErrQuestInactive)
	})

	t.Run("draft quest", func(t *testing.T) {
		draft := seedPublishedQuest(t, db, "Draft Quest", 50, 0)
		require.NoError(t, db.Model(draft).Update("status", models.QuestStatusDraft).Error)
		_, err := svc.Create(studentID, studentRoles, draft.ID, "proof.jpg", "")
		assert.ErrorIs(t, err, ErrQuestInactive)
	})
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	_, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)

	// pending attempt blocks a second one
	_, err = svc.Create(studentID, studentRoles, quest.ID, "proof2.jpg", "")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	// approved attempt blocks as well
	var sub models.Submission
	require.NoError(t, db.Where("quest_id = ? AND external_user_id = ?", quest.ID, studentID).First(&sub).Error)
	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	_, err = svc.Create(studentID, studentRoles, quest.ID, "proof3.jpg", "")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestCreateSubmissionRetryAfterRejection(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	first, err := svc.Create(studentID, studentRoles, quest.ID, "blurry.jpg", "")
	require.NoError(t, err)

	_, err = svc.Review(reviewerID, first.ID, models.SubmissionStatusRejected, "photo too blurry")
	require.NoError(t, err)

	second, err := svc.Create(studentID, studentRoles, quest.ID, "sharp.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)
	assert.Equal(t, models.SubmissionStatusPending, second.Status)

	// both attempts remain on record
	var count int64
	require.NoError(t, db.Model(&models.Submission{}).
		Where("quest_id = ? AND external_user_id = ?", quest.ID, studentID).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateSubmissionQuestFull(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Limited Cleanup", 100, 1)

	sub, err := svc.Create("student-a", studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)
	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	// roster is at capacity now
	_, err = svc.Create("student-b", studentRoles, quest.ID, "proof.jpg", "")
	assert.ErrorIs(t, err, ErrQuestFull)
}

func TestReviewApprove(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)

	reviewed, err := svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewerID, *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)

	// exactly one credit, one roster entry, one counter bump
	assert.Equal(t, int64(100), userBalance(t, db, studentID))
	assert.Equal(t, int64(1), rosterSize(t, db, quest.ID))
	var user models.EcoUser
	require.NoError(t, db.Where("external_user_id = ?", studentID).First(&user).Error)
	assert.Equal(t, int64(1), user.QuestsCompleted)

	notifs := notificationsOfType(t, db, studentID, models.NotificationSubmissionApproved)
	require.Len(t, notifs, 1)
	assert.Contains(t, notifs[0].Payload, quest.ID)
	assert.Contains(t, notifs[0].Payload, sub.ID)
}

func TestReviewApproveTwice(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)
	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	assert.ErrorIs(t, err, ErrAlreadyApproved)

	// nothing credited twice
	assert.Equal(t, int64(100), userBalance(t, db, studentID))
	assert.Equal(t, int64(1), rosterSize(t, db, quest.ID))
}

func TestReviewReject(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)

	reviewed, err := svc.Review(reviewerID, sub.ID, models.SubmissionStatusRejected, "photo too blurry")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionStatusRejected, reviewed.Status)
	assert.Equal(t, "photo too blurry", reviewed.RejectionReason)

	// rejection mutates nothing beyond the submission
	assert.Equal(t, int64(0), userBalance(t, db, studentID))
	assert.Equal(t, int64(0), rosterSize(t, db, quest.ID))

	notifs := notificationsOfType(t, db, studentID, models.NotificationSubmissionRejected)
	require.Len(t, notifs, 1)
	assert.Contains(t, notifs[0].Payload, "photo too blurry")
}

func TestReviewRejectedThenApproved(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)
	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusRejected, "wrong angle")
	require.NoError(t, err)

	// overturned on re-review: the rejection never credited, so this must
	reviewed, err := svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionStatusApproved, reviewed.Status)
	assert.Equal(t, int64(100), userBalance(t, db, studentID))
	assert.Equal(t, int64(1), rosterSize(t, db, quest.ID))
}

func TestReviewOverturnedAttemptCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	first, err := svc.Create(studentID, studentRoles, quest.ID, "blurry.jpg", "")
	require.NoError(t, err)
	_, err = svc.Review(reviewerID, first.ID, models.SubmissionStatusRejected, "photo too blurry")
	require.NoError(t, err)

	second, err := svc.Create(studentID, studentRoles, quest.ID, "sharp.jpg", "")
	require.NoError(t, err)
	_, err = svc.Review(reviewerID, second.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	// overturning the old rejected attempt flips the record but the pair
	// was already credited, so the ledger and roster stay put
	overturned, err := svc.Review(reviewerID, first.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, overturned.Status)

	assert.Equal(t, int64(100), userBalance(t, db, studentID))
	assert.Equal(t, int64(1), rosterSize(t, db, quest.ID))

	var user models.EcoUser
	require.NoError(t, db.Where("external_user_id = ?", studentID).First(&user).Error)
	assert.Equal(t, int64(1), user.QuestsCompleted)

	// only the attempt that credited produced an approval notification
	notifs := notificationsOfType(t, db, studentID, models.NotificationSubmissionApproved)
	assert.Len(t, notifs, 1)
}

func TestReviewInvalidDecision(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)

	_, err := svc.Review(reviewerID, "some-id", models.SubmissionStatusPending, "")
	assert.Error(t, err)

	_, err = svc.Review(reviewerID, "missing-id", models.SubmissionStatusApproved, "")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestAutoApprove(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create("admin-1", []string{"admin"}, quest.ID, "proof.jpg", "")
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionStatusApproved, sub.Status)
	require.NotNil(t, sub.ReviewedBy)
	assert.Equal(t, "admin-1", *sub.ReviewedBy)

	// full fan-out ran inline
	assert.Equal(t, int64(100), userBalance(t, db, "admin-1"))
	assert.Equal(t, int64(1), rosterSize(t, db, quest.ID))
	require.Len(t, notificationsOfType(t, db, "admin-1", models.NotificationSubmissionApproved), 1)
}

func TestAutoApproveCapabilityInjection(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	svc.CanAutoApprove = func(roles []string) bool {
		for _, r := range roles {
			if r == "eco_officer" {
				return true
			}
		}
		return false
	}
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create("officer-2", []string{"eco_officer"}, quest.ID, "proof.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, sub.Status)

	// admin no longer qualifies under the injected predicate
	sub2, err := svc.Create("admin-1", []string{"admin"}, quest.ID, "proof.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, sub2.Status)
}

func TestApprovalMissingUserRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	quest := seedPublishedQuest(t, db, "Campus Cleanup", 100, 0)

	sub, err := svc.Create(studentID, studentRoles, quest.ID, "proof.jpg", "")
	require.NoError(t, err)

	// user row disappears between submission and review
	require.NoError(t, db.Unscoped().Where("external_user_id = ?", studentID).Delete(&models.EcoUser{}).Error)

	_, err = svc.Review(reviewerID, sub.ID, models.SubmissionStatusApproved, "")
	assert.ErrorIs(t, err, ErrEntityMissing)

	// all-or-nothing: the submission stays pending
	var reloaded models.Submission
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubmissionStatusPending, reloaded.Status)
	assert.Equal(t, int64(0), rosterSize(t, db, quest.ID))
}

func TestListSubmissions(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newSubmissionStack(db)
	questA := seedPublishedQuest(t, db, "Quest A", 50, 0)
	questB := seedPublishedQuest(t, db, "Quest B", 75, 0)

	subA, err := svc.Create(studentID, studentRoles, questA.ID, "a.jpg", "")
	require.NoError(t, err)
	_, err = svc.Create(studentID, studentRoles, questB.ID, "b.jpg", "")
	require.NoError(t, err)
	_, err = svc.Create("student-2", studentRoles, questA.ID, "c.jpg", "")
	require.NoError(t, err)

	mine, err := svc.ListByUser(studentID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	require.NotNil(t, mine[0].Quest)

	pending, err := svc.ListPending()
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = svc.Review(reviewerID, subA.ID, models.SubmissionStatusApproved, "")
	require.NoError(t, err)

	pending, err = svc.ListPending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := svc.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := svc.Get(subA.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, got.Status)

	_, err = svc.Get("missing")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}
