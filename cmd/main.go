package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"voice-practice-client/internal/app"
	"voice-practice-client/internal/capture"
	"voice-practice-client/internal/config"
	"voice-practice-client/internal/credential"
	"voice-practice-client/internal/events"
	"voice-practice-client/internal/observability"
	"voice-practice-client/internal/playback"
	"voice-practice-client/internal/remote/gemini"
	"voice-practice-client/internal/session"
	"voice-practice-client/internal/ui"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}

	creds, err := credential.NewFileStore(cfg.Service.Principal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open credential store")
	}

	exporter := events.New(&events.Config{
		Enabled:      cfg.Export.Enabled,
		Brokers:      cfg.Export.Brokers,
		TopicPartial: cfg.Export.TopicPartial,
		TopicFinal:   cfg.Export.TopicFinal,
		Principal:    cfg.Export.Principal,
	})
	defer exporter.Close()

	// One audio output context per process.
	sink, err := playback.NewOtoSink(cfg.Audio.PlaybackSampleRate, cfg.Audio.Channels)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio output")
	}
	scheduler := playback.NewScheduler(sink, cfg.Audio.PlaybackSampleRate, cfg.Audio.Channels)
	sink.SetFinishedFunc(scheduler.Finished)

	dialer := gemini.NewDialer(cfg.Remote.Endpoint)

	controller := session.NewController(cfg, creds, dialer,
		capture.NewMalgoSource, scheduler, exporter, nil)
	hub := ui.NewHub(controller)
	controller.SetNotifier(hub)
	go hub.Run()
	defer hub.Close()

	uiServer := ui.NewServer(cfg.UI.Addr, hub)
	uiServer.Start()

	// Ready once the credential store is reachable; an absent credential is
	// fine (onboarding is a working state), a broken store is not.
	ready := func() error {
		if _, err := creds.Load(); err != nil && !errors.Is(err, credential.ErrNotFound) {
			return fmt.Errorf("credential store: %w", err)
		}
		return nil
	}
	metricsServer := observability.NewServer(cfg.Observability.MetricsAddr, ready)
	metricsServer.Start()

	if cfg.Service.AutoStart {
		go func() {
			if err := controller.Start(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Auto-start failed")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	controller.Stop()
	sink.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uiServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("UI server shutdown error")
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown error")
	}
	application.Shutdown()
}
