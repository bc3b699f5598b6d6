package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionService owns the submission lifecycle: creation, the
// pending→approved/rejected review transition, and the approval fan-out
// (ledger credit, roster append, notification). Submission status is mutated
// nowhere else.
type SubmissionService struct {
	DB            *gorm.DB
	Ledger        *LedgerService
	Notifications *NotificationService
	Badges        *BadgeService

	// CanAutoApprove decides whether a submitter's roles allow inline
	// approval at creation time. Injected so new privilege tiers don't
	// require touching the state machine.
	CanAutoApprove func(roles []string) bool
}

func NewSubmissionService(db *gorm.DB, ledger *LedgerService, notifications *NotificationService, badges *BadgeService) *SubmissionService {
	return &SubmissionService{
		DB:            db,
		Ledger:        ledger,
		Notifications: notifications,
		Badges:        badges,
		CanAutoApprove: func(roles []string) bool {
			for _, r := range roles {
				if r == "admin" {
					return true
				}
			}
			return false
		},
	}
}

// Create validates and persists a new submission for (user, quest).
//
// A new attempt is only allowed when the user's latest attempt for the quest
// was rejected; a pending or approved attempt yields ErrDuplicateSubmission.
// Capacity is checked here and only here — review never re-checks, so a
// submission accepted while the quest had room may still be approved after
// the quest fills.
//
// If the submitter's roles grant auto-approval, the record is created
// directly approved (reviewer = self) and the approval fan-out runs inside
// the same transaction.
func (s *SubmissionService) Create(externalUserID string, roles []string, questID, proofURL, reflection string) (*models.Submission, error) {
	if proofURL == "" {
		return nil, ErrProofRequired
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	if quest.Status != models.QuestStatusPublished || !quest.IsActive {
		return nil, ErrQuestInactive
	}

	if quest.MaxParticipants > 0 {
		var rosterSize int64
		if err := s.DB.Model(&models.QuestCompletion{}).
			Where("quest_id = ?", quest.ID).
			Count(&rosterSize).Error; err != nil {
			return nil, err
		}
		if rosterSize >= int64(quest.MaxParticipants) {
			return nil, ErrQuestFull
		}
	}

	attempt := 1
	var last models.Submission
	err := s.DB.Where("quest_id = ? AND external_user_id = ?", quest.ID, externalUserID).
		Order("attempt DESC").
		First(&last).Error
	switch {
	case err == nil:
		if last.Status != models.SubmissionStatusRejected {
			return nil, ErrDuplicateSubmission
		}
		attempt = last.Attempt + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first attempt
	default:
		return nil, err
	}

	// Make sure the ledger row exists before anything can credit it.
	if _, err := s.Ledger.EnsureUser(externalUserID); err != nil {
		return nil, err
	}

	sub := &models.Submission{
		ID:             uuid.NewString(),
		QuestID:        quest.ID,
		ExternalUserID: externalUserID,
		Attempt:        attempt,
		ProofURL:       proofURL,
		Reflection:     reflection,
		Status:         models.SubmissionStatusPending,
	}

	autoApprove := s.CanAutoApprove != nil && s.CanAutoApprove(roles)
	if !autoApprove {
		if err := s.DB.Create(sub).Error; err != nil {
			return nil, err
		}
		return sub, nil
	}

	// Privileged submitter: approved at birth, fan-out inline.
	now := time.Now()
	sub.Status = models.SubmissionStatusApproved
	sub.ReviewedBy = &externalUserID
	sub.ReviewedAt = &now
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		_, _, err := s.applyApproval(tx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyApproved(sub, &quest)
	log.Printf("✅ Auto-approved submission %s (quest=%s, user=%s)", sub.ID, quest.Title, externalUserID)
	return sub, nil
}

// Review executes the pending→approved/rejected transition.
//
// Re-approving an approved submission fails with ErrAlreadyApproved so the
// credit can never land twice. A rejected→approved transition IS credited —
// the rejection never credited anything — unless a later attempt for the
// same (quest, user) pair was approved in the meantime, in which case the
// record flips but the ledger and roster stay put. Rejection mutates nothing beyond
// the submission itself.
//
// The submission save, ledger credit and roster append commit in one
// transaction; the notification is emitted after commit, best-effort.
func (s *SubmissionService) Review(reviewerID, submissionID string, decision models.SubmissionStatus, rejectionReason string) (*models.Submission, error) {
	if decision != models.SubmissionStatusApproved && decision != models.SubmissionStatusRejected {
		return nil, fmt.Errorf("invalid review decision %q", decision)
	}

	var sub models.Submission
	var quest models.Quest
	var previous models.SubmissionStatus
	credited := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		if sub.Status == models.SubmissionStatusApproved && decision == models.SubmissionStatusApproved {
			return ErrAlreadyApproved
		}

		previous = sub.Status
		now := time.Now()
		sub.Status = decision
		sub.ReviewedBy = &reviewerID
		sub.ReviewedAt = &now
		if decision == models.SubmissionStatusRejected {
			sub.RejectionReason = rejectionReason
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		if decision == models.SubmissionStatusApproved && previous != models.SubmissionStatusApproved {
			q, didCredit, err := s.applyApproval(tx, &sub)
			if err != nil {
				return err
			}
			quest = *q
			credited = didCredit
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if credited {
		s.notifyApproved(&sub, &quest)
	}
	if decision == models.SubmissionStatusRejected && previous != models.SubmissionStatusRejected {
		var questTitle string
		var q models.Quest
		if err := s.DB.First(&q, "id = ?", sub.QuestID).Error; err == nil {
			questTitle = q.Title
		}
		if err := s.Notifications.Emit(sub.ExternalUserID, models.NotificationSubmissionRejected,
			"Submission rejected",
			fmt.Sprintf("Your submission was rejected: %s", rejectionReason),
			map[string]interface{}{
				"quest_id":         sub.QuestID,
				"quest_title":      questTitle,
				"submission_id":    sub.ID,
				"rejection_reason": rejectionReason,
			},
		); err != nil {
			log.Printf("⚠️ Failed to emit rejection notification for %s: %v", sub.ExternalUserID, err)
		}
	}

	return &sub, nil
}

// applyApproval runs the approval fan-out inside tx: verify both referenced
// entities still exist (all-or-nothing — no partial credit), append the
// roster/completed-set entry, and credit the balance only when the roster
// actually grew. The roster's unique (quest, user) index is what keeps a
// pair from being credited twice across attempts: overturning an old
// rejected attempt after a retry was already approved flips the record but
// awards nothing. Reports whether the credit landed, and returns the quest
// so callers can build the notification without a second lookup.
func (s *SubmissionService) applyApproval(tx *gorm.DB, sub *models.Submission) (*models.Quest, bool, error) {
	var user models.EcoUser
	if err := tx.Where("external_user_id = ?", sub.ExternalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrEntityMissing
		}
		return nil, false, err
	}

	var quest models.Quest
	if err := tx.First(&quest, "id = ?", sub.QuestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrEntityMissing
		}
		return nil, false, err
	}

	appended, err := s.Ledger.MarkQuestCompleted(tx, user.ExternalUserID, quest.ID, sub.ProofURL)
	if err != nil {
		return nil, false, err
	}
	if !appended {
		// a sibling attempt already credited this (quest, user) pair
		return &quest, false, nil
	}
	if err := s.Ledger.CreditPoints(tx, user.ExternalUserID, quest.Points); err != nil {
		return nil, false, err
	}
	return &quest, true, nil
}

// notifyApproved emits the approval notification and kicks the badge check.
// Both are fire-and-forget: the review decision has already committed.
func (s *SubmissionService) notifyApproved(sub *models.Submission, quest *models.Quest) {
	if err := s.Notifications.Emit(sub.ExternalUserID, models.NotificationSubmissionApproved,
		"Submission approved",
		fmt.Sprintf("Your proof for %q was approved — you earned %d eco-points!", quest.Title, quest.Points),
		map[string]interface{}{
			"quest_id":      quest.ID,
			"quest_title":   quest.Title,
			"points_earned": quest.Points,
			"submission_id": sub.ID,
		},
	); err != nil {
		log.Printf("⚠️ Failed to emit approval notification for %s: %v", sub.ExternalUserID, err)
	}
	if s.Badges != nil {
		if err := s.Badges.AutoAwardBadges(sub.ExternalUserID); err != nil {
			log.Printf("⚠️ Badge auto-award failed for %s: %v", sub.ExternalUserID, err)
		}
	}
}

// Get returns one submission with its quest preloaded.
func (s *SubmissionService) Get(submissionID string) (*models.Submission, error) {
	var sub models.Submission
	if err := s.DB.Preload("Quest").First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListByUser returns the user's submissions, newest first.
func (s *SubmissionService) ListByUser(externalUserID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.Preload("Quest").
		Where("external_user_id = ?", externalUserID).
		Order("submitted_at DESC").
		Find(&subs).Error
	return subs, err
}

// ListPending returns the review queue, newest first.
func (s *SubmissionService) ListPending() ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.Preload("Quest").
		Where("status = ?", models.SubmissionStatusPending).
		Order("submitted_at DESC").
		Find(&subs).Error
	return subs, err
}

// ListAll returns every submission, newest first.
func (s *SubmissionService) ListAll() ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.Preload("Quest").
		Order("submitted_at DESC").
		Find(&subs).Error
	return subs, err
}
