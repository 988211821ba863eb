package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"challenge-platform/handlers"
	"challenge-platform/middleware"
	"challenge-platform/models"
	"challenge-platform/services"
	"challenge-platform/utils"
	"challenge-platform/workers"

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
		BodyLimit: 10 * 1024 * 1024, // 10MB — submissions and icons, no large assets
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
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
	} else {
		log.Println("⚠️  R2 not configured, icons will be stored under ./uploads")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.ChallengeTag{},
		&models.Challenge{},
		&models.Comment{},
		&models.UserProgress{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.LeaderboardEntry{},
		&models.UserMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	// Optional Redis leaderboard cache
	var leaderboardCache *services.LeaderboardCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		leaderboardCache, err = services.NewLeaderboardCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
		if err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		defer leaderboardCache.Close()
	} else {
		log.Println("⚠️  REDIS_ADDR not set, leaderboard reads go straight to Postgres")
	}

	challengeService := services.NewChallengeService(db)
	categoryService := services.NewCategoryService(db)
	achievementService := services.NewAchievementService(db)
	leaderboardService := services.NewLeaderboardService(db, leaderboardCache)
	progressService := services.NewProgressService(db, leaderboardService)

	if err := achievementService.SeedDefaults(); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}

	// --- CONFIGURE identity sync ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("CHALLENGE_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("CHALLENGE_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	syncWorker := workers.NewUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting User Sync Worker...")
		syncWorker.Start(ctx)
	}()

	challengeService.StartPublishScheduler()

	// ✅ Setup routes — enforced Gateway auth everywhere
	handlers.SetupChallengeRoutes(app, challengeService, categoryService, progressService)
	handlers.SetupProgressRoutes(app, progressService, achievementService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)

	app.Static("/uploads", utils.UploadsRoot())

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ User Sync Worker running")
	log.Println("✅ Challenge publish scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come through Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
