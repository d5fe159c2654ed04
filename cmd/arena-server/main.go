package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"analyst-alchemist/internal/app/arena"
	"analyst-alchemist/internal/backend"
	"analyst-alchemist/internal/config"
	"analyst-alchemist/internal/logging"
	"analyst-alchemist/internal/store"
	httptransport "analyst-alchemist/internal/transport/http"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   store.Repository
		pinger httptransport.Pinger
	)
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		repo, pinger = st, st
	} else {
		log.Warn().Msg("POSTGRES_DSN not set; saved agents live in memory only")
		repo = store.NewMemory()
	}

	mgr := arena.NewManager(cfg.Market, repo)
	mgr.StartJanitor(ctx, time.Minute)

	r := httptransport.NewRouter(cfg.Server, mgr, backend.New(cfg.Server), pinger)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgr.Shutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Str("api_prefix", cfg.Server.APIPrefix).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}
