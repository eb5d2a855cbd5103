package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/auth"
	"github.com/svca/portal/internal/config"
	"github.com/svca/portal/internal/gateway"
	"github.com/svca/portal/internal/geocode"
	internalhttp "github.com/svca/portal/internal/http"
	"github.com/svca/portal/internal/metrics"
	"github.com/svca/portal/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("portal encerrado com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	var (
		persister session.Persister = session.NewMemoryPersister()
		ready     func(ctx context.Context) error
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		persister = session.NewRedisPersister(redisClient, cfg.SessionTTL)
		ready = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	} else {
		log.Warn().Msg("REDIS_URL vazio: sessões mantidas em memória")
	}

	gw, err := gateway.New(gateway.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout})
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:    cfg,
		Persister: persister,
		Gateway:   gw,
		Geocoder:  geocode.New(geocode.Config{BaseURL: cfg.NominatimURL, UserAgent: cfg.NominatimUserAgent}),
		Tokens:    auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL),
		Ready:     ready,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("backend", gw.BaseURL()).Msgf("portal ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
