package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"eco-quest-system/models"
	"eco-quest-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Badges        *BadgeService
}

func NewChallengeService(db *gorm.DB, notifications *NotificationService, badges *BadgeService) *ChallengeService {
	return &ChallengeService{DB: db, Notifications: notifications, Badges: badges}
}

func (s *ChallengeService) uniqueChallengeSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "challenge"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		s.DB.Unscoped().Model(&models.CommunityChallenge{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateChallenge creates a new community challenge (officers/admins only).
func (s *ChallengeService) CreateChallenge(c *fiber.Ctx) error {
	if !hasAnyRole(c, "admin", "eco_officer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only eco officers can create challenges"})
	}
	creatorID := c.Locals("user_id").(string)

	title := c.FormValue("title")
	description := c.FormValue("description")
	targetStr := c.FormValue("target_points")
	maxParticipantsStr := c.FormValue("max_participants")
	startStr := c.FormValue("start_at")
	endStr := c.FormValue("end_at")
	publishStr := c.FormValue("publish")

	if title == "" || targetStr == "" || startStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title, target_points, and start_at are required"})
	}

	target, err := strconv.ParseInt(targetStr, 10, 64)
	if err != nil || target <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "target_points must be a positive integer"})
	}

	maxParticipants := 0
	if maxParticipantsStr != "" {
		if n, err := strconv.Atoi(maxParticipantsStr); err == nil && n >= 0 {
			maxParticipants = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "max_participants must be a non-negative integer"})
		}
	}

	startAt, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_at (use RFC3339)"})
	}

	var endAt *time.Time
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_at (use RFC3339)"})
		}
		if !t.After(startAt) {
			return c.Status(400).JSON(fiber.Map{"error": "end_at must be after start_at"})
		}
		endAt = &t
	}

	status := models.ChallengeStatusDraft
	if publishStr == "true" {
		status = models.ChallengeStatusPublished
	}

	// --- Handle cover photo → R2 ---
	var photoURL string
	if photo, err := c.FormFile("photo"); err == nil && photo.Size > 0 {
		ext := filepath.Ext(photo.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		photoKey := "challenges/" + uuid.NewString() + ext
		if utils.R2Enabled() {
			photoURL, err = utils.UploadFileToR2(photo, photoKey)
			if err != nil {
				log.Printf("⚠️ Challenge photo upload failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload photo"})
			}
		} else {
			localPath := utils.GetUploadPath(photoKey)
			if err := utils.SaveFile(photo, localPath); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save photo"})
			}
			photoURL = "/" + localPath
		}
	}

	challenge := &models.CommunityChallenge{
		ID:              uuid.NewString(),
		Title:           title,
		Slug:            s.uniqueChallengeSlug(title),
		Description:     description,
		PhotoURL:        photoURL,
		TargetPoints:    target,
		MaxParticipants: maxParticipants,
		StartAt:         startAt,
		EndAt:           endAt,
		Status:          status,
		CreatedBy:       creatorID,
	}

	if err := s.DB.Create(challenge).Error; err != nil {
		log.Printf("DB Error creating challenge: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create challenge"})
	}

	return c.Status(fiber.StatusCreated).JSON(challenge)
}

// GetPublishedChallenges lists challenges students can see, with progress.
func (s *ChallengeService) GetPublishedChallenges(c *fiber.Ctx) error {
	var challenges []models.CommunityChallenge
	err := s.DB.Where("status IN ?", []models.ChallengeStatus{
		models.ChallengeStatusPublished,
		models.ChallengeStatusCompleted,
	}).Order("start_at DESC").Find(&challenges).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch challenges"})
	}

	res := make([]fiber.Map, 0, len(challenges))
	for _, ch := range challenges {
		var participants int64
		s.DB.Model(&models.ChallengeParticipant{}).Where("challenge_id = ?", ch.ID).Count(&participants)
		res = append(res, fiber.Map{
			"id":               ch.ID,
			"title":            ch.Title,
			"slug":             ch.Slug,
			"description":      ch.Description,
			"photo_url":        ch.PhotoURL,
			"target_points":    ch.TargetPoints,
			"progress_points":  ch.ProgressPoints,
			"max_participants": ch.MaxParticipants,
			"participants":     participants,
			"start_at":         ch.StartAt,
			"end_at":           ch.EndAt,
			"status":           ch.Status,
			"completed_at":     ch.CompletedAt,
		})
	}
	return c.JSON(res)
}

// GetChallengeByID returns one challenge with its participants.
func (s *ChallengeService) GetChallengeByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var challenge models.CommunityChallenge
	if err := s.DB.Preload("Participants").First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(challenge)
}

// JoinChallenge enrolls the authenticated user, at most once per challenge.
func (s *ChallengeService) JoinChallenge(c *fiber.Ctx) error {
	id := c.Params("id")
	userID := c.Locals("user_id").(string)

	var challenge models.CommunityChallenge
	if err := s.DB.First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if challenge.Status != models.ChallengeStatusPublished {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "challenge is not open for joining"})
	}
	if challenge.EndAt != nil && time.Now().After(*challenge.EndAt) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "challenge has ended"})
	}

	if challenge.MaxParticipants > 0 {
		var participants int64
		s.DB.Model(&models.ChallengeParticipant{}).Where("challenge_id = ?", challenge.ID).Count(&participants)
		if participants >= int64(challenge.MaxParticipants) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "challenge is full"})
		}
	}

	participant := models.ChallengeParticipant{
		ID:             uuid.NewString(),
		ChallengeID:    challenge.ID,
		ExternalUserID: userID,
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}, {Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&participant)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to join challenge"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already joined this challenge"})
	}

	s.DB.Model(&models.EcoUser{}).
		Where("external_user_id = ?", userID).
		UpdateColumn("challenges_joined", gorm.Expr("challenges_joined + ?", 1))

	if s.Badges != nil {
		_ = s.Badges.AutoAwardBadges(userID) // fire-and-forget
	}

	log.Printf("🤝 %s joined challenge %s", userID, challenge.Title)
	return c.Status(fiber.StatusCreated).JSON(participant)
}

// RecomputeProgress re-derives every open challenge's progress from approved
// submissions its participants made inside the challenge window. Called by
// the challenge progress worker; safe to re-run at any time since it always
// rebuilds from the source of truth.
func (s *ChallengeService) RecomputeProgress(ctx context.Context) error {
	var challenges []models.CommunityChallenge
	err := s.DB.WithContext(ctx).
		Where("status = ?", models.ChallengeStatusPublished).
		Find(&challenges).Error
	if err != nil {
		return err
	}

	now := time.Now()
	for _, ch := range challenges {
		windowEnd := now
		if ch.EndAt != nil && ch.EndAt.Before(now) {
			windowEnd = *ch.EndAt
		}

		type contribution struct {
			ExternalUserID string
			Total          int64
		}
		// distinct (user, quest) pairs: approving multiple attempts of one
		// quest still counts it once, matching the ledger's credit rule
		var contribs []contribution
		err := s.DB.WithContext(ctx).Raw(`
			SELECT pair.external_user_id AS external_user_id,
			       SUM(q.points)         AS total
			FROM (
				SELECT DISTINCT s.external_user_id, s.quest_id
				FROM submissions s
				INNER JOIN challenge_participants cp
				        ON cp.external_user_id = s.external_user_id
				       AND cp.challenge_id = ?
				WHERE s.status = 'approved'
				  AND s.reviewed_at >= ?
				  AND s.reviewed_at <= ?
			) pair
			INNER JOIN quests q ON q.id = pair.quest_id AND q.deleted_at IS NULL
			GROUP BY pair.external_user_id
		`, ch.ID, ch.StartAt, windowEnd).Scan(&contribs).Error
		if err != nil {
			log.Printf("[CHALLENGE] ❌ Progress query failed for %s: %v", ch.ID, err)
			continue
		}

		var total int64
		for _, contrib := range contribs {
			total += contrib.Total
			s.DB.WithContext(ctx).Model(&models.ChallengeParticipant{}).
				Where("challenge_id = ? AND external_user_id = ?", ch.ID, contrib.ExternalUserID).
				UpdateColumn("points_contributed", contrib.Total)
		}

		updates := map[string]interface{}{"progress_points": total}
		reached := total >= ch.TargetPoints
		expired := ch.EndAt != nil && now.After(*ch.EndAt)

		switch {
		case reached:
			completedAt := now
			updates["status"] = models.ChallengeStatusCompleted
			updates["completed_at"] = &completedAt
		case expired:
			updates["status"] = models.ChallengeStatusExpired
		}

		if err := s.DB.WithContext(ctx).Model(&models.CommunityChallenge{}).
			Where("id = ?", ch.ID).
			Updates(updates).Error; err != nil {
			log.Printf("[CHALLENGE] ❌ Failed to update challenge %s: %v", ch.ID, err)
			continue
		}

		if reached {
			log.Printf("🏆 Challenge completed: %s (%d/%d points)", ch.Title, total, ch.TargetPoints)
			s.notifyCompletion(ctx, &ch, total)
		} else if expired {
			log.Printf("⏳ Challenge expired: %s (%d/%d points)", ch.Title, total, ch.TargetPoints)
		}
	}
	return nil
}

// notifyCompletion tells every participant the goal was reached. Best-effort.
func (s *ChallengeService) notifyCompletion(ctx context.Context, ch *models.CommunityChallenge, total int64) {
	if s.Notifications == nil {
		return
	}
	var participants []models.ChallengeParticipant
	if err := s.DB.WithContext(ctx).Where("challenge_id = ?", ch.ID).Find(&participants).Error; err != nil {
		log.Printf("[CHALLENGE] ⚠️ Failed to load participants for %s: %v", ch.ID, err)
		return
	}
	for _, p := range participants {
		if err := s.Notifications.Emit(p.ExternalUserID, models.NotificationChallengeCompleted,
			"Challenge completed!",
			fmt.Sprintf("🎉 %q reached its goal of %d eco-points!", ch.Title, ch.TargetPoints),
			map[string]interface{}{
				"challenge_id":    ch.ID,
				"challenge_title": ch.Title,
				"target_points":   ch.TargetPoints,
				"total_points":    total,
			},
		); err != nil {
			log.Printf("[CHALLENGE] ⚠️ Failed to notify %s: %v", p.ExternalUserID, err)
		}
	}
}
