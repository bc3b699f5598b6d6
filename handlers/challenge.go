package handlers

import (
	"eco-quest-system/middleware"
	"eco-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	// 🔓 Public routes (still behind Gateway auth)
	app.Get("/challenges", challengeService.GetPublishedChallenges)
	app.Get("/challenges/:id", challengeService.GetChallengeByID)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/challenges", challengeService.CreateChallenge)
	secured.Post("/challenges/:id/join", challengeService.JoinChallenge)
}
