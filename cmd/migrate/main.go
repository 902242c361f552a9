package main

import (
	"context"
	"os"

	_ "github.com/lib/pq"

	"github.com/eudiconnect/credential-platform/internal/config"
	"github.com/eudiconnect/credential-platform/internal/db/schema"
	"github.com/eudiconnect/credential-platform/internal/log"
)

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
	log.Debug(ctx, "database", "url", cfg.Database.URL)

	if err := schema.Migrate(cfg.Database.URL); err != nil {
		log.Error(ctx, "error migrating database", "err", err)
		return
	}

	log.Info(ctx, "migration done!")
}
