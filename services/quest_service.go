package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"eco-quest-system/models"
	"eco-quest-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type QuestService struct {
	DB *gorm.DB
}

func NewQuestService(db *gorm.DB) *QuestService {
	return &QuestService{DB: db}
}

// uniqueQuestSlug builds a URL slug from the title, suffixing -2, -3, …
// when the base slug is taken.
func (s *QuestService) uniqueQuestSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "quest"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		s.DB.Unscoped().Model(&models.Quest{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// CreateQuest creates a new **draft** quest with metadata and cover photo.
// Eco officers and admins only.
func (s *QuestService) CreateQuest(c *fiber.Ctx) error {
	if !hasAnyRole(c, "admin", "eco_officer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only eco officers can create quests"})
	}
	creatorID := c.Locals("user_id").(string)

	title := c.FormValue("title")
	description := c.FormValue("description")
	category := c.FormValue("category")
	pointsStr := c.FormValue("points")
	maxParticipantsStr := c.FormValue("max_participants")
	deadlineStr := c.FormValue("deadline")
	publishScheduleStr := c.FormValue("publish_schedule") // Expected format: RFC3339

	// --- Validation ---
	if title == "" || pointsStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title and points are required"})
	}

	points, err := strconv.ParseInt(pointsStr, 10, 64)
	if err != nil || points <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "points must be a positive integer"})
	}

	maxParticipants := 0
	if maxParticipantsStr != "" {
		if n, err := strconv.Atoi(maxParticipantsStr); err == nil && n >= 0 {
			maxParticipants = n
		} else {
			return c.Status(400).JSON(fiber.Map{"error": "max_participants must be a non-negative integer"})
		}
	}

	var deadline *time.Time
	if deadlineStr != "" {
		t, err := time.Parse(time.RFC3339, deadlineStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid deadline (use RFC3339)"})
		}
		deadline = &t
	}

	status := models.QuestStatusDraft
	var publishAt *time.Time
	if publishScheduleStr != "" {
		t, err := time.Parse(time.RFC3339, publishScheduleStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid publish_schedule (use RFC3339)"})
		}
		publishAt = &t
		status = models.QuestStatusScheduled
	}

	// --- Handle cover photo → R2 ---
	var photoURL string
	if photo, err := c.FormFile("photo"); err == nil && photo.Size > 0 {
		ext := filepath.Ext(photo.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		photoKey := "quests/" + uuid.NewString() + ext
		if utils.R2Enabled() {
			photoURL, err = utils.UploadFileToR2(photo, photoKey)
			if err != nil {
				log.Printf("⚠️ Quest photo upload failed: %v", err)
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

	quest := &models.Quest{
		ID:              uuid.NewString(),
		Title:           title,
		Slug:            s.uniqueQuestSlug(title),
		Description:     description,
		Category:        strings.ToLower(strings.TrimSpace(category)),
		PhotoURL:        photoURL,
		Points:          points,
		MaxParticipants: maxParticipants,
		IsActive:        true,
		Status:          status,
		PublishAt:       publishAt,
		Deadline:        deadline,
		CreatedBy:       creatorID,
	}

	if err := s.DB.Create(quest).Error; err != nil {
		log.Printf("DB Error creating quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create quest"})
	}

	return c.Status(fiber.StatusCreated).JSON(quest)
}

// GetPublishedQuests lists quests open to students, with roster counts.
func (s *QuestService) GetPublishedQuests(c *fiber.Ctx) error {
	category := c.Query("category", "")

	db := s.DB.Where("status = ?", models.QuestStatusPublished)
	if category != "" {
		db = db.Where("category = ?", strings.ToLower(category))
	}

	var quests []models.Quest
	if err := db.Order("created_at DESC").Find(&quests).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch quests"})
	}

	res := make([]fiber.Map, 0, len(quests))
	for _, q := range quests {
		var rosterSize int64
		s.DB.Model(&models.QuestCompletion{}).Where("quest_id = ?", q.ID).Count(&rosterSize)
		res = append(res, fiber.Map{
			"id":               q.ID,
			"title":            q.Title,
			"slug":             q.Slug,
			"description":      q.Description,
			"category":         q.Category,
			"photo_url":        q.PhotoURL,
			"points":           q.Points,
			"max_participants": q.MaxParticipants,
			"is_active":        q.IsActive,
			"deadline":         q.Deadline,
			"completions":      rosterSize,
			// advisory only — the review flow does not re-check capacity
			"is_full": q.MaxParticipants > 0 && rosterSize >= int64(q.MaxParticipants),
		})
	}
	return c.JSON(res)
}

// GetAllQuests is the officer/admin view: every quest, any status.
func (s *QuestService) GetAllQuests(c *fiber.Ctx) error {
	if !hasAnyRole(c, "admin", "eco_officer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	var quests []models.Quest
	if err := s.DB.Order("created_at DESC").Find(&quests).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch quests"})
	}
	return c.JSON(quests)
}

// GetQuestByID returns one quest with its completion roster.
func (s *QuestService) GetQuestByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var quest models.Quest
	if err := s.DB.Preload("Completions").First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(quest)
}

// GetQuestBySlug returns one published quest by its slug.
func (s *QuestService) GetQuestBySlug(c *fiber.Ctx) error {
	questSlug := c.Params("slug")

	var quest models.Quest
	if err := s.DB.Preload("Completions").
		Where("slug = ? AND status = ?", questSlug, models.QuestStatusPublished).
		First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(quest)
}

// UpdateQuest applies partial metadata edits (author or admin only).
// The roster is never editable here — only the review flow appends to it.
func (s *QuestService) UpdateQuest(c *fiber.Ctx) error {
	id := c.Params("id")
	userID := c.Locals("user_id").(string)

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if quest.CreatedBy != userID && !hasAnyRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the quest author or an admin may edit"})
	}

	var req struct {
		Title           *string    `json:"title"`
		Description     *string    `json:"description"`
		Category        *string    `json:"category"`
		Points          *int64     `json:"points"`
		MaxParticipants *int       `json:"max_participants"`
		IsActive        *bool      `json:"is_active"`
		Deadline        *time.Time `json:"deadline"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Title != nil && *req.Title != "" && *req.Title != quest.Title {
		quest.Title = *req.Title
		quest.Slug = s.uniqueQuestSlug(*req.Title)
	}
	if req.Description != nil {
		quest.Description = *req.Description
	}
	if req.Category != nil {
		quest.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Points != nil {
		if *req.Points <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be positive"})
		}
		quest.Points = *req.Points
	}
	if req.MaxParticipants != nil {
		quest.MaxParticipants = *req.MaxParticipants
	}
	if req.IsActive != nil {
		quest.IsActive = *req.IsActive
	}
	if req.Deadline != nil {
		quest.Deadline = req.Deadline
	}

	if err := s.DB.Save(&quest).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update quest"})
	}
	return c.JSON(quest)
}

// UpdateQuestStatus moves a quest through its publish lifecycle.
func (s *QuestService) UpdateQuestStatus(c *fiber.Ctx) error {
	if !hasAnyRole(c, "admin", "eco_officer") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	id := c.Params("id")

	var req struct {
		Status    models.QuestStatus `json:"status"`
		PublishAt *time.Time         `json:"publish_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	switch req.Status {
	case models.QuestStatusDraft, models.QuestStatusScheduled, models.QuestStatusPublished, models.QuestStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}
	if req.Status == models.QuestStatusScheduled && req.PublishAt == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "publish_at is required for scheduled status"})
	}

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	quest.Status = req.Status
	quest.PublishAt = nil
	if req.Status == models.QuestStatusScheduled {
		quest.PublishAt = req.PublishAt
	}

	if err := s.DB.Save(&quest).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update status"})
	}
	log.Printf("📋 Quest %s status → %s", quest.Title, quest.Status)
	return c.JSON(quest)
}

// DeleteQuest soft-deletes a quest. Submissions referencing it are kept —
// orphaned references are tolerated, and reviewing them fails cleanly.
func (s *QuestService) DeleteQuest(c *fiber.Ctx) error {
	if !hasAnyRole(c, "admin") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	id := c.Params("id")

	res := s.DB.Delete(&models.Quest{}, "id = ?", id)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete quest"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
	}
	return c.JSON(fiber.Map{"message": "quest deleted"})
}

// GetQuestRoster returns the completion roster joined with user summaries.
func (s *QuestService) GetQuestRoster(c *fiber.Ctx) error {
	id := c.Params("id")

	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var completions []models.QuestCompletion
	if err := s.DB.Where("quest_id = ?", id).Order("completed_at ASC").Find(&completions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch roster"})
	}

	res := make([]fiber.Map, 0, len(completions))
	for _, comp := range completions {
		entry := fiber.Map{
			"external_user_id": comp.ExternalUserID,
			"proof_url":        comp.ProofURL,
			"completed_at":     comp.CompletedAt,
		}
		var user models.EcoUser
		if err := s.DB.Where("external_user_id = ?", comp.ExternalUserID).First(&user).Error; err == nil {
			entry["username"] = user.Username
			entry["department"] = user.Department
		}
		res = append(res, entry)
	}

	return c.JSON(fiber.Map{
		"quest_id":         quest.ID,
		"title":            quest.Title,
		"max_participants": quest.MaxParticipants,
		"completions":      res,
	})
}
