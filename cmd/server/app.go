package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/thecawe/cellar/internal/ai"
	"github.com/thecawe/cellar/internal/auth"
	"github.com/thecawe/cellar/internal/config"
	"github.com/thecawe/cellar/internal/db"
	"github.com/thecawe/cellar/internal/handlers"
	"github.com/thecawe/cellar/internal/models"
	"github.com/thecawe/cellar/internal/ratelimit"
	"github.com/thecawe/cellar/internal/server"
	"github.com/thecawe/cellar/internal/services"
	"github.com/thecawe/cellar/internal/storage"
)

func run(cfg config.Config) error {
	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	// The gate re-reads status and role on every request so that
	// moderation decisions apply without a re-login.
	auth.SetAccountResolver(func(ctx context.Context, uid uint) (auth.Account, bool) {
		var user models.User
		if err := conn.WithContext(ctx).Select("status", "role").First(&user, uid).Error; err != nil {
			return auth.Account{}, false
		}
		return auth.Account{Status: user.Status, Role: user.Role}, true
	})

	cellarSvc := services.NewCellarService(conn)

	aiHandler := buildAIHandler(cfg, conn, cellarSvc)

	handler := server.New(server.Deps{
		DB:        conn,
		Auth:      handlers.NewAuthHandler(conn),
		Dashboard: handlers.NewDashboardHandler(conn, cellarSvc),
		Cellar:    handlers.NewCellarHandler(cellarSvc),
		Messages:  handlers.NewMessageHandler(conn),
		Admin:     handlers.NewAdminHandler(conn),
		AI:        aiHandler,
		Data:      handlers.NewDataHandler(cellarSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// buildAIHandler wires the Gemini client with its optional Redis quota
// and MinIO archive. Everything here degrades: no API key disables the
// endpoints, no Redis disables the quota, no MinIO skips archiving.
func buildAIHandler(cfg config.Config, conn *gorm.DB, cellarSvc *services.CellarService) *handlers.AIHandler {
	var advisor ai.Advisor
	var scanner ai.LabelScanner
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("gemini client init failed, AI endpoints disabled")
		} else {
			som := ai.NewSommelier(client)
			advisor, scanner = som, som
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, AI endpoints disabled")
	}

	h := handlers.NewAIHandler(conn, cellarSvc, advisor, scanner)

	if cfg.RedisAddr != "" {
		adviceLimit, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "cellar:ai:advice", cfg.AIAdvicePerMinute, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("advice rate limiter disabled")
		} else {
			h.AdviceLimit = adviceLimit
		}
		scanLimit, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "cellar:ai:scan", cfg.AIScansPerMinute, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("scan rate limiter disabled")
		} else {
			h.ScanLimit = scanLimit
		}
	}

	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Warn().Err(err).Msg("label archive disabled")
		} else {
			h.LabelStore = store
		}
	}
	return h
}
