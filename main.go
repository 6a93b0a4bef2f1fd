package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kalm/internal/bot"
	"kalm/internal/catalog"
	"kalm/internal/config"
	"kalm/internal/observability"
	"kalm/internal/platform/telegram"
	"kalm/internal/server"
	"kalm/internal/voice"
	"kalm/internal/voicestore"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	observability.Must(err, "load config")

	observability.Init(observability.LogConfig{Level: cfg.LogLevel, Verbose: cfg.LogVerbose})
	log := observability.Component("main")

	ctx := context.Background()
	shutdownOTel, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
		Insecure:    cfg.OTELInsecure,
	})
	observability.Must(err, "init otel")

	cat, err := catalog.Load()
	observability.Must(err, "load response catalog")

	voices, err := voicestore.New(cfg.DataDir)
	observability.Must(err, "open voice store")

	tg := telegram.NewClient(cfg.TelegramBotToken)
	tts := voice.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)

	proc := bot.NewProcessor(tg, tts, cat, voices)
	poller := bot.NewPoller(tg, proc, cfg.PollTimeout, cfg.PollRetryDelay)
	srv := server.New(cfg, proc, poller, tg)

	// polling is the default ingestion mode; set-webhook switches it off
	poller.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info(ctx, "shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error(ctx, "server failed", observability.AttrErr(err))
	}

	poller.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http shutdown failed", observability.AttrErr(err))
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error(ctx, "otel shutdown failed", observability.AttrErr(err))
	}
	log.Info(ctx, "bot stopped")
}
