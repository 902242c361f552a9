package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eudiconnect/credential-platform/internal/api"
	"github.com/eudiconnect/credential-platform/internal/buildinfo"
	"github.com/eudiconnect/credential-platform/internal/cache"
	"github.com/eudiconnect/credential-platform/internal/config"
	"github.com/eudiconnect/credential-platform/internal/core/services"
	"github.com/eudiconnect/credential-platform/internal/db"
	"github.com/eudiconnect/credential-platform/internal/gateways"
	"github.com/eudiconnect/credential-platform/internal/health"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
	iRedis "github.com/eudiconnect/credential-platform/internal/redis"
	"github.com/eudiconnect/credential-platform/internal/repositories"
	client "github.com/eudiconnect/credential-platform/pkg/http"
)

var build = buildinfo.Revision()

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Error(ctx, "cannot load config", "err", err)
		panic(err)
	}

	log.Config(cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	ctx = log.NewContext(ctx, cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	log.Info(ctx, "starting revoker...", "revision", build)

	cachex, err := cache.NewCacheClient(ctx, *cfg)
	if err != nil {
		log.Error(ctx, "cannot initialize cache", "err", err)
		return
	}

	ps, err := pubsub.NewPubSub(ctx, *cfg)
	if err != nil {
		log.Error(ctx, "cannot initialize pubsub", "err", err)
		return
	}
	defer func() {
		if err := ps.Close(); err != nil {
			log.Error(ctx, "error closing pubsub connection", "err", err)
		}
	}()

	storage, err := db.NewStorage(cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "cannot connect to database", "err", err)
		panic(err)
	}
	defer func(storage *db.Storage) {
		if err := storage.Close(); err != nil {
			log.Error(ctx, "error closing database connection", "err", err)
		}
	}(storage)

	statusListRepo := repositories.NewStatusList(storage, cachex)
	scheduledRevocationRepo := repositories.NewScheduledRevocation(storage)
	schedulerService := services.NewScheduler(scheduledRevocationRepo, statusListRepo, ps, cfg.Scheduler.BatchSize)

	signer := gateways.NewSignerClient(client.DefaultHTTPClientWithRetry, cfg.Signer.URL)
	revocationService := services.NewRevocation(statusListRepo, signer, ps)
	server := api.NewServer(revocationService, schedulerService)

	go func(ctx context.Context) {
		ticker := time.NewTicker(cfg.Scheduler.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				executed, err := schedulerService.RunDue(ctx, time.Now())
				if err != nil {
					log.Error(ctx, "scheduled revocation pass failed", "err", err)
					continue
				}
				if len(executed) > 0 {
					log.Info(ctx, "scheduled revocation pass done", "executed", len(executed))
				}
			case <-ctx.Done():
				log.Info(ctx, "finishing scheduled revocation job")
				return
			}
		}
	}(ctx)

	pingers := []health.Ping{storage.Pgx, signer}
	if cfg.Cache.Provider == config.CacheProviderRedis {
		if rdb, err := iRedis.Open(ctx, cfg.Cache.Url); err == nil {
			pingers = append(pingers, iRedis.NewWrapper(rdb))
		}
	}

	go func() {
		mux := chi.NewRouter()
		mux.Use(middleware.RequestID, log.ChiMiddleware(ctx))
		mux.Get("/status", healthHandler(ctx, pingers...))
		server.Routes(mux)

		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		log.Info(ctx, "Starting server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error(ctx, "error starting server", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info(ctx, "finishing app")
	cancel()
	log.Info(ctx, "Finished")
}

func healthHandler(ctx context.Context, pingers ...health.Ping) http.HandlerFunc {
	checker := health.New(pingers...)
	return func(w http.ResponseWriter, r *http.Request) {
		for service, ok := range checker.Status(r.Context()) {
			if !ok {
				log.Warn(ctx, "service unavailable", "service", service)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error(ctx, "error writing response", "err", err)
		}
	}
}
