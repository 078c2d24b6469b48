package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"obsidian-chat/internal/config"
	"obsidian-chat/internal/domain/ports/adapter"
	"obsidian-chat/internal/domain/ports/repository"
	aiAdapters "obsidian-chat/internal/infra/adapters/ai"
	"obsidian-chat/internal/infra/logging"
	"obsidian-chat/internal/infra/metrics"
	red "obsidian-chat/internal/infra/redis"
	"obsidian-chat/internal/infra/security"
	filestore "obsidian-chat/internal/infra/storage/file"
	"obsidian-chat/internal/infra/web"
	"obsidian-chat/internal/infra/worker"
	"obsidian-chat/internal/ratelimit"
	"obsidian-chat/internal/store"
	"obsidian-chat/internal/usecase"

	"github.com/rs/zerolog"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway when no API key)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- State repository ----
	var repo repository.StateRepository
	switch cfg.Storage.Backend {
	case "redis":
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer client.Close()
		repo = red.NewStateRepo(client, cfg.Redis.KeyPrefix, logger)
	default:
		var enc *security.EncryptionService
		if cfg.Security.EncryptionKey != "" {
			enc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
			if err != nil {
				logger.Fatal().Err(err).Msg("encryption")
			}
		}
		repo, err = filestore.NewStateRepo(cfg.Storage.Dir, enc, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("storage")
		}
	}

	// ---- Session store ----
	sessions := store.New(repo, logger)
	sessions.Bootstrap(ctx)

	// ---- Rate limiter + maintenance ----
	limiter := ratelimit.New(repo, cfg.RateLimit.MaxMessages, cfg.RateLimit.Window, logger)
	maintenance := worker.NewMaintenance(cfg.RateLimit.PruneInterval, limiter, logger)
	maintenance.Start(ctx)
	defer maintenance.Stop()

	// ---- AI gateway ----
	var gateway adapter.ChatGateway
	if cfg.AI.GeminiKey != "" {
		gateway, err = aiAdapters.NewGeminiGateway(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.MaxOutputTokens, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini gateway")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("AI gateway: Gemini")
	} else {
		gateway = aiAdapters.NewNoopGateway()
		logger.Info().Msg("AI gateway: noop (no API key, dev mode)")
	}
	gateway = aiAdapters.NewLimitedGateway(gateway, cfg.AI.ConcurrentLimit)

	// ---- Engine ----
	chatUC := usecase.NewChatUseCase(sessions, gateway, limiter, hintLogger{logger}, logger)

	// ---- HTTP ----
	metrics.MustRegister()
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: web.NewServer(chatUC, logger).Router(),
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// hintLogger surfaces the decorative first-message mode hint in the log; a
// richer frontend would push it to the client instead.
type hintLogger struct {
	log *zerolog.Logger
}

func (h hintLogger) ModeHint(sessionID string) {
	h.log.Info().Str("session_id", sessionID).Msg("mode hint: try toggling lite/pro")
}
