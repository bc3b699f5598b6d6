package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eco-quest-system/handlers"
	"eco-quest-system/middleware"
	"eco-quest-system/models"
	"eco-quest-system/services"
	"eco-quest-system/utils"
	"eco-quest-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — proof photos, not game bundles
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		log.Println("✅ R2 storage configured")
	} else {
		log.Println("⚠️  CLOUDFLARE_ACCOUNT_ID not set — uploads fall back to local disk")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.EcoUser{},
		&models.Quest{},
		&models.QuestCompletion{},
		&models.Submission{},
		&models.Notification{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.CommunityChallenge{},
		&models.ChallengeParticipant{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	ledgerService := services.NewLedgerService(db)
	notificationService := services.NewNotificationService(db)
	badgeService := services.NewBadgeService(db)
	questService := services.NewQuestService(db)
	submissionService := services.NewSubmissionService(db, ledgerService, notificationService, badgeService)
	challengeService := services.NewChallengeService(db, notificationService, badgeService)
	leaderboardService := services.NewLeaderboardService(db)

	if err := badgeService.SeedBadgeTypes(); err != nil {
		log.Fatal("failed to seed badge types:", err)
	}

	// --- CONFIGURE profile sync + auth service ---
	syncServiceURL := os.Getenv("PROFILE_SYNC_URL")
	if syncServiceURL == "" {
		log.Fatal("PROFILE_SYNC_URL environment variable not set")
	}
	ecoServiceToken := os.Getenv("ECO_SERVICE_TOKEN")
	if ecoServiceToken == "" {
		log.Fatal("ECO_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	// --- END CONFIG ---

	authClient := services.NewAuthServiceClient(authServiceURL, ecoServiceToken)
	syncWorker := workers.NewEcoUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", ecoServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Eco User Sync Worker...")
		syncWorker.Start(ctx)
	}()

	go workers.PollChallengeProgress(ctx, challengeService, 30*time.Second)

	questService.StartQuestScheduler()

	// ✅ Setup routes — enforced Gateway auth on everything
	handlers.SetupQuestRoutes(app, questService)
	handlers.SetupChallengeRoutes(app, challengeService)
	handlers.SetupEngagementRoutes(app, submissionService, ledgerService, notificationService, badgeService, leaderboardService, authClient)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Eco User Sync Worker running")
	log.Println("✅ Challenge progress polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
