package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Ruletka/internal/adapters/http"
	"github.com/dkeye/Ruletka/internal/app"
	"github.com/dkeye/Ruletka/internal/config"
	"github.com/dkeye/Ruletka/internal/sfu"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	engine, err := sfu.NewEngine(sfu.Config{
		STUNServers: cfg.RTC.STUNServers,
		MinPort:     cfg.RTC.MinPort,
		MaxPort:     cfg.RTC.MaxPort,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init media engine")
	}
	defer engine.Close()

	mediaRouter, err := engine.CreateRouter(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create media router")
	}
	defer mediaRouter.Close()

	var pick app.Selector
	switch cfg.Match.Policy {
	case "fifo":
		pick = app.FIFOSelector
	default:
		pick = app.NewRandomSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	registry := app.NewRegistry()
	transports := app.NewTransportManager()
	match := app.NewMatchmaker(registry, transports, pick, cfg.Match.WaitTimeout)
	orch := &app.Orchestrator{
		Registry:   registry,
		Match:      match,
		Transports: transports,
		Router:     mediaRouter,
	}

	reaper := &app.Reaper{Match: match, Interval: cfg.Match.SweepInterval}
	go reaper.Run(ctx)

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Ruletka server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-engine.Fatal():
		// Media engine is gone for good; drain and exit.
		log.Error().Err(err).Msg("media engine fatal, shutting down")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
