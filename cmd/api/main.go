package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vet-appointments/internal/adapters/identity"
	lockadapter "vet-appointments/internal/adapters/lock"
	"vet-appointments/internal/adapters/notifier"
	pg "vet-appointments/internal/adapters/storage/postgres"
	"vet-appointments/internal/config"
	"vet-appointments/internal/platform/logger"
	"vet-appointments/internal/ports/auth"
	"vet-appointments/internal/ports/directory"
	"vet-appointments/internal/router"
)

func main() {
	log := logger.NewFromEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log.Info("starting api", map[string]any{"env": cfg.Env, "http_port": cfg.HTTPPort})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := router.Options{Logger: log}

	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("postgres connection failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		opts.DB = db
		log.Info("storage: postgres", nil)
	} else {
		log.Warn("storage: in-memory (DB_DSN not set)", nil)
	}

	if cfg.RedisAddr != "" {
		rdb, err := lockadapter.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Error("redis connection failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer rdb.Close()
		opts.Locker = lockadapter.NewRedisLocker(rdb, cfg.LockTTL)
		log.Info("lock: redis", nil)
	}

	if cfg.AMQPURL != "" {
		pub, err := notifier.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Error("amqp connection failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer pub.Close()
		opts.Notifier = pub
		log.Info("notifications: amqp", map[string]any{"exchange": cfg.AMQPExchange})
	}

	opts.Directory, opts.AuthVerifier = buildIdentity(cfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	case <-rootCtx.Done():
		log.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", map[string]any{"error": err.Error()})
		}
	}
}

// buildIdentity arma directorio + verifier contra el servicio de identidad.
// Sin DIRECTORY_BASE_URL queda en modo dev: directorio estático vacío y auth
// por headers de debug.
func buildIdentity(cfg config.Config, log logger.Logger) (directory.Directory, auth.AuthVerifier) {
	if cfg.DirectoryBaseURL == "" {
		log.Warn("identity: dev mode (DIRECTORY_BASE_URL not set)", nil)
		return identity.NewStaticDirectory(nil), nil
	}

	client, err := identity.NewClient(identity.Config{
		BaseURL: cfg.DirectoryBaseURL,
		APIKey:  cfg.DirectoryAPIKey,
	})
	if err != nil {
		log.Error("identity client init failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log.Info("identity: remote directory", map[string]any{"base_url": cfg.DirectoryBaseURL})
	return client, identity.NewVerifier(client)
}
