// services/users.go
package services

import (
	"strconv"
	"strings"

	"eco-quest-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/unidecode"
)

// SearchUsers searches the local EcoUser mirror (reviewer-facing).
// Queries are accent-folded so "José" matches "jose".
func (s *QuestService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.EcoUser
	db := s.DB.Model(&models.EcoUser{}).Limit(limit)

	if query != "" {
		folded := unidecode.Unidecode(strings.TrimSpace(query))
		searchTerm := "%" + strings.ToLower(folded) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	if err := db.Order("username ASC").Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed"})
	}

	type UserSummary struct {
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
		Department     string `json:"department"`
		Points         int64  `json:"points"`
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Department:     u.Department,
			Points:         u.Points,
		}
	}

	return c.JSON(res)
}
