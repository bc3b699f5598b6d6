// handlers/engagement_routes.go
package handlers

import (
	"errors"
	"log"
	"path/filepath"
	"strconv"

	"eco-quest-system/middleware"
	"eco-quest-system/models"
	"eco-quest-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eco-quest-system/utils"
)

// SetupEngagementRoutes wires the submission/review flow plus the read-side
// endpoints built on top of it: ledger, notifications, badges, leaderboard.
func SetupEngagementRoutes(
	app *fiber.App,
	submissionService *services.SubmissionService,
	ledgerService *services.LedgerService,
	notificationService *services.NotificationService,
	badgeService *services.BadgeService,
	leaderboardService *services.LeaderboardService,
	authClient *services.AuthServiceClient,
) {
	// 🔓 Public leaderboards (Gateway auth only)
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := leaderboardService.TopUsers(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	app.Get("/leaderboard/departments", func(c *fiber.Ctx) error {
		standings, err := leaderboardService.DepartmentStandings()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build department standings",
				"cause": err.Error(),
			})
		}
		return c.JSON(standings)
	})

	// 🔐 SSE stream — browser EventSource can't send gateway headers, so this
	// authenticates via query token against the auth service.
	app.Get("/user/notifications/stream",
		middleware.SSEAuthMiddleware(authClient),
		notificationService.StreamUserNotificationsSSE)

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	// --- Submission flow ---

	secured.Post("/quests/:id/submissions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		roles := middleware.RolesFromCtx(c)
		questID := c.Params("id")
		reflection := c.FormValue("reflection")

		// Proof photo → R2 (local disk when R2 isn't configured)
		var proofURL string
		if proof, err := c.FormFile("proof_photo"); err == nil && proof.Size > 0 {
			ext := filepath.Ext(proof.Filename)
			if ext == "" {
				ext = ".jpg"
			}
			key := "proofs/" + uuid.NewString() + ext
			if utils.R2Enabled() {
				proofURL, err = utils.UploadFileToR2(proof, key)
				if err != nil {
					log.Printf("⚠️ Proof upload failed for user %s: %v", userID, err)
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload proof photo"})
				}
			} else {
				localPath := utils.GetUploadPath(key)
				if err := utils.SaveFile(proof, localPath); err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save proof photo"})
				}
				proofURL = "/" + localPath
			}
		}

		sub, err := submissionService.Create(userID, roles, questID, proofURL, reflection)
		if err != nil {
			return submissionErrorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	secured.Get("/user/submissions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		subs, err := submissionService.ListByUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list submissions",
				"cause": err.Error(),
			})
		}
		return c.JSON(subs)
	})

	secured.Get("/submissions/pending", func(c *fiber.Ctx) error {
		if !middleware.HasAnyRole(c, "admin", "eco_officer") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "reviewer role required"})
		}
		subs, err := submissionService.ListPending()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list pending submissions",
				"cause": err.Error(),
			})
		}
		return c.JSON(subs)
	})

	secured.Get("/submissions/:id", func(c *fiber.Ctx) error {
		sub, err := submissionService.Get(c.Params("id"))
		if err != nil {
			return submissionErrorResponse(c, err)
		}
		// participants may only see their own
		userID := c.Locals("user_id").(string)
		if sub.ExternalUserID != userID && !middleware.HasAnyRole(c, "admin", "eco_officer") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.JSON(sub)
	})

	secured.Post("/submissions/:id/review", func(c *fiber.Ctx) error {
		if !middleware.HasAnyRole(c, "admin", "eco_officer") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "reviewer role required"})
		}
		reviewerID := c.Locals("user_id").(string)

		var req struct {
			Decision        models.SubmissionStatus `json:"decision"`
			RejectionReason string                  `json:"rejection_reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		sub, err := submissionService.Review(reviewerID, c.Params("id"), req.Decision, req.RejectionReason)
		if err != nil {
			return submissionErrorResponse(c, err)
		}
		return c.JSON(sub)
	})

	// --- Ledger ---

	secured.Get("/user/ledger", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := ledgerService.GetBalance(userID)
		if errors.Is(err, services.ErrUserNotFound) {
			// first touch — create the row so the client always gets a ledger
			user, err = ledgerService.EnsureUser(userID)
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load ledger",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"external_user_id":  user.ExternalUserID,
			"username":          user.Username,
			"department":        user.Department,
			"points":            user.Points,
			"eco_level":         services.EcoLevelName(user.Points),
			"quests_completed":  user.QuestsCompleted,
			"challenges_joined": user.ChallengesJoined,
		})
	})

	secured.Get("/leaderboard/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		window, _ := strconv.Atoi(c.Query("window", "5"))
		entries, err := leaderboardService.AroundUser(userID, window)
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no ledger for user yet"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard window",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	// --- Notifications ---

	secured.Get("/user/notifications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		notifs, err := notificationService.ListForUser(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list notifications",
				"cause": err.Error(),
			})
		}
		return c.JSON(notifs)
	})

	secured.Get("/user/notifications/unread-count", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		count, err := notificationService.UnreadCount(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count notifications",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"unread": count})
	})

	secured.Patch("/notifications/:id/read", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := notificationService.MarkRead(userID, c.Params("id")); err != nil {
			if services.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark notification read",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "marked read"})
	})

	secured.Post("/notifications/read-all", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		n, err := notificationService.MarkAllRead(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark notifications read",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"marked_read": n})
	})

	// --- Badges ---

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := badgeService.ListUserBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	// --- Admin ---

	admin := secured.Group("/admin")

	admin.Post("/points/grant", func(c *fiber.Ctx) error {
		if !middleware.HasAnyRole(c, "admin") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}

		var req struct {
			UserID string `json:"user_id"`
			Points int64  `json:"points"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UserID == "" || req.Points <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a positive points value are required"})
		}

		if err := ledgerService.GrantPoints(req.UserID, req.Points, req.Reason, notificationService); err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "point grant failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "points granted successfully",
			"user_id": req.UserID,
			"points":  req.Points,
		})
	})

	admin.Get("/submissions", func(c *fiber.Ctx) error {
		if !middleware.HasAnyRole(c, "admin") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		subs, err := submissionService.ListAll()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list submissions",
				"cause": err.Error(),
			})
		}
		return c.JSON(subs)
	})
}

// submissionErrorResponse maps the review-flow sentinel errors onto HTTP
// statuses. Anything unrecognized is a 500.
func submissionErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrQuestNotFound),
		errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrEntityMissing):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrAlreadyApproved),
		errors.Is(err, services.ErrQuestInactive),
		errors.Is(err, services.ErrQuestFull):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrProofRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error", "cause": err.Error()})
	}
}
