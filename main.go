package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"competition-ledger/handlers"
	"competition-ledger/middleware"
	"competition-ledger/models"
	"competition-ledger/services"
	"competition-ledger/utils"
	"competition-ledger/workers"

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
		BodyLimit: 50 * 1024 * 1024, // 50MB, submission files included
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

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

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Competition{},
		&models.Participant{},
		&models.Judge{},
		&models.JudgeAuthorization{},
		&models.ScoreEntry{},
		&models.JudgeScoreFlag{},
		&models.Notification{},
		&models.PayoutReceipt{},
		&models.WalletMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	policy := services.LoadPolicy()
	log.Printf("Ledger policy: registration=%s score_scope=%s", policy.Registration, policy.ScoreScope)

	competitionService := services.NewCompetitionService(db, policy)
	participantService := services.NewParticipantService(db, policy)
	judgeService := services.NewJudgeService(db)
	scoreService := services.NewScoreService(db, policy)
	paymentsClient := services.NewPaymentsClient()
	finalizeService := services.NewFinalizeService(db, paymentsClient)
	notificationService := services.NewNotificationService(db)

	walletSyncClient := workers.NewWalletSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollWallets(ctx, walletSyncClient, 10*time.Second)

	competitionService.StartSettlementSweep()

	handlers.SetupCompetitionRoutes(app, competitionService, participantService, judgeService, scoreService, finalizeService, notificationService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Wallet polling running (every 10s)")
	log.Println("✅ Settlement sweep running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
