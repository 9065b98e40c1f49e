package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nipun22325/secret-sharing/config"
	"github.com/nipun22325/secret-sharing/internal/api"
	"github.com/nipun22325/secret-sharing/internal/crypto"
	"github.com/nipun22325/secret-sharing/internal/logs"
	"github.com/nipun22325/secret-sharing/internal/secrets"
	"github.com/nipun22325/secret-sharing/internal/store"

	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logs.Logger.Fatalf("config error: %v", err)
	}

	logs.Init(logs.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	key := loadKey(cfg)
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		logs.Logger.Fatalf("cipher init failed: %v", err)
	}

	st := initStore(cfg)
	defer st.Close()

	svc := secrets.New(st, cipher)
	router := api.SetupRouter(svc, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runReaper(ctx, svc, cfg.Secrets.CleanupInterval)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logs.Logger.Infof("server starting on %s", cfg.Addr())
	logs.Logger.Infof("base URL: %s", cfg.Server.BaseURL)
	logs.Logger.Infof("store: %s", cfg.Store.Type)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logs.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Logger.Errorf("shutdown error: %v", err)
	}
}

// loadKey establishes the process-wide encryption key. Losing a generated
// key makes every stored secret unrecoverable, so it is logged exactly once
// for operator capture.
func loadKey(cfg *config.Config) []byte {
	if cfg.Secrets.EncryptionKey != "" {
		key, err := crypto.ParseKey(cfg.Secrets.EncryptionKey)
		if err != nil {
			logs.Logger.Fatalf("SECRET_ENCRYPTION_KEY: %v", err)
		}
		return key
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		logs.Logger.Fatalf("key generation failed: %v", err)
	}
	logs.Logger.Warnf("generated encryption key (store this securely!): %s", crypto.EncodeKey(key))
	return key
}

func initStore(cfg *config.Config) store.Store {
	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			logs.Logger.Fatalf("redis connection failed: %v", err)
		}
		return st
	default:
		return store.NewMemoryStore(cfg.Secrets.CleanupInterval)
	}
}

// runReaper sweeps expired records on an interval so long-lived secrets do
// not pile up between requests. Runs once at startup, then every tick.
func runReaper(ctx context.Context, svc *secrets.Service, interval time.Duration) {
	reapOnce(ctx, svc)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reapOnce(ctx, svc)
		}
	}
}

func reapOnce(ctx context.Context, svc *secrets.Service) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	deleted, err := svc.Sweep(cctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		logs.Logger.Errorf("expiry sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		logs.Logger.Infof("expired secrets deleted: %d", deleted)
	}
}
