package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/eudiconnect/credential-platform/internal/buildinfo"
	"github.com/eudiconnect/credential-platform/internal/config"
	"github.com/eudiconnect/credential-platform/internal/core/event"
	"github.com/eudiconnect/credential-platform/internal/core/services"
	"github.com/eudiconnect/credential-platform/internal/db"
	"github.com/eudiconnect/credential-platform/internal/gateways"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

var build = buildinfo.Revision()

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Error(ctx, "cannot load config", "err", err)
		return
	}

	log.Config(cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	ctx = log.NewContext(ctx, cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	log.Info(ctx, "starting notifications service...", "revision", build)

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
		return
	}
	defer func(storage *db.Storage) {
		if err := storage.Close(); err != nil {
			log.Error(ctx, "error closing database connection", "err", err)
		}
	}(storage)

	webhookRepo := repositories.NewWebhook(storage)
	deliverer := gateways.NewWebhookClient(cfg.Webhook)
	notificationService := services.NewNotification(webhookRepo, deliverer, cfg.Webhook.MaxConcurrent)

	ps.Subscribe(ctx, event.CredentialRevokedEvent, notificationService.SendRevokedNotification)
	ps.Subscribe(ctx, event.CredentialsBatchRevokedEvent, notificationService.SendBatchRevokedNotification)

	go func() {
		mux := chi.NewRouter()
		mux.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			if _, err := w.Write([]byte("OK")); err != nil {
				log.Error(ctx, "error writing response", "err", err)
			}
		})

		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		log.Info(ctx, "Starting server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error(ctx, "error starting server", "err", err)
		}
	}()

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	<-gracefulShutdown
	log.Info(ctx, "finishing notifications service")
}
