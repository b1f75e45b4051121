package main

import (
	"fmt"
	"os"

	"github.com/go-co-op/gocron/v2"

	"github.com/lecturehub/backend-go/internal/api"
	"github.com/lecturehub/backend-go/internal/config"
	"github.com/lecturehub/backend-go/internal/database"
	"github.com/lecturehub/backend-go/internal/database/repository"
	"github.com/lecturehub/backend-go/internal/database/service"
	"github.com/lecturehub/backend-go/internal/handler"
	"github.com/lecturehub/backend-go/internal/logger"
	"github.com/lecturehub/backend-go/internal/middleware"
	"github.com/lecturehub/backend-go/internal/token"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting auth service...",
		"environment", cfg.AppEnv,
	)

	// 3. Token codec - a short or missing signing secret is fatal
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.AccessTokenExpMinutes, cfg.RefreshTokenExpDays)
	if err != nil {
		appLogger.Error("❌ Invalid JWT configuration", "error", err)
		os.Exit(1)
	}

	// 4. Connect to Database
	if err := database.ConnectDatabase(cfg, appLogger); err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := database.GetDatabase()

	// 5. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, codec, appLogger)

	// 7. Schedule the expired-token janitor
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		appLogger.Error("❌ Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	janitor := service.NewTokenJanitor(refreshTokenRepo, appLogger)
	if err := janitor.Register(scheduler, cfg.JanitorCronSchedule); err != nil {
		appLogger.Error("❌ Failed to schedule token janitor", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			appLogger.Warn("⚠️ Scheduler shutdown failed", "error", err)
		}
	}()
	appLogger.Info("🧹 [Go] Token janitor scheduled", "cron", cfg.JanitorCronSchedule)

	// 8. Initialize Rate Limiter
	rateLimiter, err := middleware.NewRateLimiter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op rate limiter", "error", err)
		rateLimiter = middleware.NewNoOpRateLimiter(appLogger)
	}
	defer rateLimiter.Close()

	// 9. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, rateLimiter, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	r := api.SetupRouter(authHandler, authMiddleware)

	// 10. Start HTTP Server
	addr := fmt.Sprintf(":%s", cfg.ApiServicePort)
	appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", addr)
	if err := r.Run(addr); err != nil {
		appLogger.Error("❌ HTTP Server failed to start", "error", err)
		os.Exit(1)
	}
}
