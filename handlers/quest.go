// handlers/quest_routes.go
package handlers

import (
	"eco-quest-system/middleware"
	"eco-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/quests", questService.GetPublishedQuests)
	app.Get("/quests/slug/:slug", questService.GetQuestBySlug)
	app.Get("/quests/:id", questService.GetQuestByID)
	app.Get("/quests/:id/roster", questService.GetQuestRoster)

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/users/search", questService.SearchUsers)

	// Quest CRUD (eco officers / admins — enforced inside the service)
	secured.Post("/quests", questService.CreateQuest)
	secured.Get("/quests/all/list", questService.GetAllQuests)
	secured.Put("/quests/:id", questService.UpdateQuest)
	secured.Patch("/quests/:id", questService.UpdateQuest)
	secured.Delete("/quests/:id", questService.DeleteQuest)

	// Publish lifecycle
	secured.Patch("/quests/:id/status", questService.UpdateQuestStatus)
}
