package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string `env:"GATEWAY_ADDR" envDefault:":8000"`
	TokenServiceURL string `env:"GATEWAY_TOKEN_SERVICE_URL" envDefault:"http://localhost:8080"`

	// Routes and PublicRoutes are "prefix=url" pairs separated by commas.
	Routes       string `env:"GATEWAY_ROUTES"`
	PublicRoutes string `env:"GATEWAY_PUBLIC_ROUTES"`

	VerifyTimeout       time.Duration `env:"GATEWAY_VERIFY_TIMEOUT" envDefault:"2s"`
	VerifyRetries       int           `env:"GATEWAY_VERIFY_RETRIES" envDefault:"2"`
	VerifyRetryInterval time.Duration `env:"GATEWAY_VERIFY_RETRY_INTERVAL" envDefault:"100ms"`
	VerifyRetryMax      time.Duration `env:"GATEWAY_VERIFY_RETRY_MAX_INTERVAL" envDefault:"1s"`
	CacheTTL            time.Duration `env:"GATEWAY_CACHE_TTL" envDefault:"30s"`
	CacheCapacity       int           `env:"GATEWAY_CACHE_CAPACITY" envDefault:"10000"`
	CacheSweepInterval  time.Duration `env:"GATEWAY_CACHE_SWEEP_INTERVAL" envDefault:"0s"`
	UpstreamTimeout     time.Duration `env:"GATEWAY_UPSTREAM_TIMEOUT" envDefault:"30s"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	Env           string `env:"ENV" envDefault:"dev"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// LoadConfig reads the environment, overlaid with envFile when it exists.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse gateway config: %w", err)
	}
	if cfg.Routes == "" && cfg.PublicRoutes == "" {
		return Config{}, errors.New("GATEWAY_ROUTES or GATEWAY_PUBLIC_ROUTES must be set")
	}
	return cfg, nil
}
