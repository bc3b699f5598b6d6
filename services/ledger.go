package services

import (
	"errors"
	"fmt"
	"log"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns each user's point balance and completed-quest set.
// Both mutators take the *gorm.DB to run against, so the review flow can pass
// its transaction and keep the whole approval fan-out atomic.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// EnsureUser ensures a local EcoUser row exists (idempotent). Normally the
// sync worker creates these; this covers the window before the first sync.
func (s *LedgerService) EnsureUser(externalUserID string) (*models.EcoUser, error) {
	var user models.EcoUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.EcoUser{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Username:       externalUserID, // placeholder until the sync worker fills it in
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreditPoints adds amount to the user's balance with a single atomic
// UPDATE ... SET points = points + ?. Concurrent approvals for the same user
// must both land, so this is never a read-modify-write.
func (s *LedgerService) CreditPoints(db *gorm.DB, externalUserID string, amount int64) error {
	res := db.Model(&models.EcoUser{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	log.Printf("🌱 Points credited: %s +%d", externalUserID, amount)
	return nil
}

// MarkQuestCompleted records the quest in the user's completed set and bumps
// the completion counter. Set semantics: re-running for the same pair is a
// no-op (ON CONFLICT DO NOTHING on the roster's unique index). Reports
// whether the roster actually grew, so callers can tie the point credit to
// the first completion of the pair.
func (s *LedgerService) MarkQuestCompleted(db *gorm.DB, externalUserID, questID, proofURL string) (bool, error) {
	completion := models.QuestCompletion{
		ID:             uuid.NewString(),
		QuestID:        questID,
		ExternalUserID: externalUserID,
		ProofURL:       proofURL,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quest_id"}, {Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&completion)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// already in the roster — counter stays put
		return false, nil
	}
	if err := db.Model(&models.EcoUser{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("quests_completed", gorm.Expr("quests_completed + ?", 1)).Error; err != nil {
		return false, err
	}
	return true, nil
}

// GetBalance returns the user's ledger view.
func (s *LedgerService) GetBalance(externalUserID string) (*models.EcoUser, error) {
	var user models.EcoUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GrantPoints is the admin-facing manual credit: atomic increment + a
// points_granted notification. Reason is free text for the audit trail.
func (s *LedgerService) GrantPoints(externalUserID string, amount int64, reason string, notifications *NotificationService) error {
	if err := s.CreditPoints(s.DB, externalUserID, amount); err != nil {
		return err
	}
	if notifications != nil {
		if err := notifications.Emit(externalUserID, models.NotificationPointsGranted,
			"Points granted",
			fmt.Sprintf("You were granted %d eco-points. %s", amount, reason),
			map[string]interface{}{"points": amount, "reason": reason},
		); err != nil {
			log.Printf("⚠️ Failed to emit points_granted notification for %s: %v", externalUserID, err)
		}
	}
	return nil
}

// EcoLevelName maps a point balance to a display level.
func EcoLevelName(points int64) string {
	switch {
	case points >= 5000:
		return "Forest Guardian"
	case points >= 2000:
		return "Mighty Oak"
	case points >= 1000:
		return "Young Tree"
	case points >= 500:
		return "Sapling"
	case points >= 100:
		return "Sprout"
	default:
		return "Seedling"
	}
}
