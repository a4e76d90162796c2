package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"truthordare/backend/internal/api/handler"
	"truthordare/backend/internal/config"
	"truthordare/backend/internal/localization"
	"truthordare/backend/internal/roomhub"
	"truthordare/backend/internal/storage"
	"truthordare/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := cfg.NewLogger()
	log.Info("Starting Truth or Dare backend...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer store.Close()

	// 2. Room service and hub
	rooms := roomhub.NewRoomService(store, log)
	if err := rooms.ReconcileArchive(ctx); err != nil {
		log.WithError(err).Warn("Failed to reconcile the room archive")
	}

	hub := roomhub.NewManagerService(rooms, log)
	hub.ChatRate = rate.Limit(cfg.ChatRatePerSec)
	hub.ChatBurst = cfg.ChatBurst
	go hub.Run(ctx)
	hub.StartPubSubListener(ctx)

	// 3. Telegram, when configured
	if cfg.TelegramToken != "" {
		loc, err := loadLocalizer(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to load translations")
		}
		bot, err := telegram.NewBotService(cfg.TelegramToken, hub, store, loc, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to start Telegram bot")
		}
		go bot.Run(ctx)
	} else {
		log.Info("TELEGRAM_BOT_TOKEN is not set, Telegram bot disabled")
	}

	// 4. HTTP
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	h := handler.NewHandler(hub, cfg.JWTSecret, cfg.TokenTTL, cfg.PublicURL)
	h.Ping = store.Ping
	h.Routes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
}

// loadLocalizer prefers LOCALES_DIR so translations can be edited without a
// rebuild, and falls back to the bundled ones.
func loadLocalizer(cfg *config.Config, log logrus.FieldLogger) (*localization.Localizer, error) {
	if cfg.LocalesDir != "" {
		loc, err := localization.NewLocalizer(cfg.LocalesDir)
		if err == nil {
			return loc, nil
		}
		log.WithError(err).WithField("dir", cfg.LocalesDir).Debug("Using bundled translations")
	}
	return localization.Bundled()
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("Request handled")
	}
}
