package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pairchat/backend/internal/api/handler"
	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
	"pairchat/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.ChatRoom{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	return db, rdb
}

// resetSessionState clears what a previous process left behind. Sessions and
// the pool live only in memory, so nothing survives a restart.
func resetSessionState(s *storage.Service, logger *slog.Logger) {
	closed, err := s.CloseAllActiveRooms()
	if err != nil {
		log.Fatalf("Failed to close stale rooms: %v", err)
	}
	if err := s.ClearSearchQueue(); err != nil {
		log.Fatalf("Failed to clear search queue mirror: %v", err)
	}
	logger.Info("Session state reset", "stale_rooms", closed)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)
	logger.Info("Starting pairchat backend", "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb, cfg.PreferenceCacheTTL, logger.With("component", "storage"))
	resetSessionState(s, logger)

	hub := chathub.NewManagerService(logger)
	engine := chathub.NewEngine(s, hub, chathub.Options{
		RequeueDelay: cfg.RequeueDelay,
		Journal:      storage.NewJournal(s, logger),
		Log:          logger,
	})
	hub.SetEngine(engine)
	go hub.Run(ctx)

	if cfg.TelegramBotToken != "" {
		loc, err := localization.Default()
		if err != nil {
			log.Fatalf("Failed to load translations: %v", err)
		}
		botService, err := telegram.NewBotService(cfg.TelegramBotToken, hub, s, loc,
			int64(cfg.MaxPictureBytes), cfg.SendBufferSize, logger)
		if err != nil {
			log.Fatalf("Failed to start Telegram bot: %v", err)
		}
		go botService.Run(ctx)
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN is empty, Telegram transport disabled")
	}

	r := gin.Default()
	handler.NewHandler(hub, s, cfg, logger).Routes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	engine.Shutdown()
	if err := rdb.Close(); err != nil {
		logger.Warn("Redis close failed", "error", err)
	}
}
