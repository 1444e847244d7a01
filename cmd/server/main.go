package main

import (
	"context"
	"log"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fadilmartias/hireflow/internal/bootstrap"
	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/domain/fiber/handler"
	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/fadilmartias/hireflow/internal/middleware"
	"github.com/fadilmartias/hireflow/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	zl, err := logger.New(appConfig.LogJSON, appConfig.LogDebug)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, zl)
	if err != nil {
		zl.Fatal("bootstrap failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      appConfig.Name,
		ErrorHandler: util.NewErrorHandler(appConfig.IsProduction()),
	})
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger.Component(zl, "http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			sqlDB, err := components.DB.DB()
			return err == nil && sqlDB.PingContext(c.UserContext()) == nil
		},
	}))
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.RateLimiter(appConfig.RateLimitMax, appConfig.RateLimitWindow))

	handler.NewInterviewHandler(components.Interviews).RegisterRoutes(app)
	handler.NewJobHandler(components.Scoring).RegisterRoutes(app)
	handler.NewResumeHandler(components.Scoring).RegisterRoutes(app, middleware.RateLimiter(1, 4*time.Second))

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				zl.Debug("runtime stats", zap.Int("goroutines", runtime.NumGoroutine()))
			}
		}
	}()

	go func() {
		<-ctx.Done()
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zl.Error("shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("server running", zap.String("port", appConfig.Port), zap.String("env", appConfig.Env))
	if err := app.Listen(appConfig.Port); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}

	if sqlDB, err := components.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
