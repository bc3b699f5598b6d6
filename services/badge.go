package services

import (
	"fmt"
	"log"

	"eco-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes upserts the predefined triggers into the badge_types table.
// Called once at boot; existing codes are left untouched.
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		var count int64
		if err := s.DB.Model(&models.BadgeType{}).Where("code = ?", trigger.Code).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			t := trigger
			t.ID = uuid.NewString()
			if err := s.DB.Create(&t).Error; err != nil {
				return err
			}
			log.Printf("🎖️ Seeded badge type: %s", t.Code)
		}
	}
	return nil
}

// AutoAwardBadges checks all badge triggers for a user after a ledger update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var user models.EcoUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return err
	}

	var triggers []models.BadgeType
	if err := s.DB.Find(&triggers).Error; err != nil {
		return err
	}

	var awarded []string
	for _, trigger := range triggers {
		if s.meetsThreshold(&user, trigger.Threshold) {
			// Check if already awarded
			var count int64
			s.DB.Model(&models.UserBadge{}).
				Where("external_user_id = ? AND badge_type_id = ?", externalUserID, trigger.ID).
				Count(&count)
			if count == 0 {
				userBadge := models.UserBadge{
					ID:             uuid.NewString(),
					ExternalUserID: externalUserID,
					BadgeTypeID:    trigger.ID,
				}
				if err := s.DB.Create(&userBadge).Error; err != nil {
					return err
				}
				awarded = append(awarded, trigger.Name)
				log.Printf("🎖️ Badge awarded: %s → %s", trigger.Name, externalUserID)
			}
		}
	}

	if len(awarded) > 0 {
		notifSvc := NewNotificationService(s.DB)
		for _, name := range awarded {
			_ = notifSvc.Emit(externalUserID, models.NotificationBadgeAwarded,
				"New badge earned!",
				fmt.Sprintf("🎉 You earned the %q badge!", name),
				map[string]interface{}{"badge": name},
			)
		}
	}
	return nil
}

func (s *BadgeService) meetsThreshold(user *models.EcoUser, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "points":
			if user.Points < required {
				return false
			}
		case "quests_completed":
			if user.QuestsCompleted < required {
				return false
			}
		case "challenges_joined":
			if user.ChallengesJoined < required {
				return false
			}
		case "event": // special: always true (e.g., signup)
			return true
		}
	}
	return true
}

// ListUserBadges returns a user's badges joined with their badge types.
func (s *BadgeService) ListUserBadges(externalUserID string) ([]map[string]interface{}, error) {
	var userBadges []models.UserBadge
	if err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&userBadges).Error; err != nil {
		return nil, err
	}

	res := make([]map[string]interface{}, 0, len(userBadges))
	for _, ub := range userBadges {
		var bt models.BadgeType
		if err := s.DB.First(&bt, "id = ?", ub.BadgeTypeID).Error; err != nil {
			continue // orphaned badge type — skip, don't fail the whole listing
		}
		res = append(res, map[string]interface{}{
			"id":            ub.ID,
			"badge_type_id": bt.ID,
			"code":          bt.Code,
			"name":          bt.Name,
			"description":   bt.Description,
			"icon_url":      bt.IconURL,
			"rarity":        bt.Rarity,
			"awarded_at":    ub.AwardedAt,
			"metadata":      ub.Metadata,
		})
	}
	return res, nil
}
