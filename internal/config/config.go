package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/eudiconnect/credential-platform/internal/log"
)

// Cache provider names
const (
	CacheProviderRedis  = "redis"
	CacheProviderValKey = "valkey"
)

// Configuration holds the project configuration
type Configuration struct {
	ServerURL  string `env:"EUDI_SERVER_URL" envDefault:"http://localhost"`
	ServerPort int    `env:"EUDI_SERVER_PORT" envDefault:"3002"`
	Database   Database
	Cache      Cache
	Log        Log
	Signer     Signer
	Webhook    Webhook
	Scheduler  Scheduler
}

// Database has the database configuration
// URL: The database connection string
type Database struct {
	URL string `env:"EUDI_DATABASE_URL"`
}

// Cache configuration. The same backend serves the cache and the pubsub bus.
type Cache struct {
	Provider string `env:"EUDI_CACHE_PROVIDER" envDefault:"redis"`
	Url      string `env:"EUDI_CACHE_URL" envDefault:"redis://@localhost:6379/0"`
}

// Log holds runtime configurations
//
// Level: The minimum log level to show on logs. Values can be
//
//	 -4: Debug
//		0: Info
//		4: Warning
//		8: Error
//
// Mode: Log mode is the format of the log. 1: JSON, 2: Text
type Log struct {
	Level int `env:"EUDI_LOG_LEVEL" envDefault:"0"`
	Mode  int `env:"EUDI_LOG_MODE" envDefault:"1"`
}

// Signer holds the address of the external credential signing service
type Signer struct {
	URL string `env:"EUDI_SIGNER_URL" envDefault:"http://localhost:8050"`
}

// Webhook holds the webhook delivery knobs
type Webhook struct {
	MaxRetries     int           `env:"EUDI_WEBHOOK_MAX_RETRIES" envDefault:"3"`
	RetryWaitMin   time.Duration `env:"EUDI_WEBHOOK_RETRY_WAIT_MIN" envDefault:"1s"`
	RetryWaitMax   time.Duration `env:"EUDI_WEBHOOK_RETRY_WAIT_MAX" envDefault:"30s"`
	RequestTimeout time.Duration `env:"EUDI_WEBHOOK_REQUEST_TIMEOUT" envDefault:"10s"`
	MaxConcurrent  int           `env:"EUDI_WEBHOOK_MAX_CONCURRENT" envDefault:"8"`
}

// Scheduler holds the scheduled revocation worker knobs
type Scheduler struct {
	PollInterval time.Duration `env:"EUDI_SCHEDULER_POLL_INTERVAL" envDefault:"1m"`
	BatchSize    int           `env:"EUDI_SCHEDULER_BATCH_SIZE" envDefault:"100"`
}

// Load loads the configuration from the environment. If fileName is not empty
// the variables defined in it are loaded first, without overriding the ones
// already present in the environment.
func Load(fileName string) (*Configuration, error) {
	if fileName != "" {
		if _, err := os.Stat(fileName); err == nil {
			if err := godotenv.Load(fileName); err != nil {
				return nil, fmt.Errorf("error loading env file %s: %w", fileName, err)
			}
		}
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config from env: %w", err)
	}

	if err := cfg.Sanitize(context.Background()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Sanitize validates the configuration values that prevent the services to start
func (c *Configuration) Sanitize(ctx context.Context) error {
	if c.Database.URL == "" {
		return errors.New("database url is mandatory. Set EUDI_DATABASE_URL")
	}
	if _, err := url.Parse(c.Database.URL); err != nil {
		return fmt.Errorf("database url is invalid: %w", err)
	}
	if c.Cache.Provider != CacheProviderRedis && c.Cache.Provider != CacheProviderValKey {
		return fmt.Errorf("unknown cache provider %s", c.Cache.Provider)
	}
	if c.Webhook.MaxRetries < 0 {
		return errors.New("webhook max retries cannot be negative")
	}
	if c.Scheduler.BatchSize <= 0 {
		log.Warn(ctx, "scheduler batch size not set, using default", "batchSize", defaultSchedulerBatchSize)
		c.Scheduler.BatchSize = defaultSchedulerBatchSize
	}
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = defaultSchedulerPollInterval
	}
	return nil
}

const (
	defaultSchedulerBatchSize    = 100
	defaultSchedulerPollInterval = time.Minute
)
