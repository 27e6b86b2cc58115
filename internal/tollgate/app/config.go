package app

import (
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Issuer string `env:"TOLLGATE_ISSUER" envDefault:"tollgate"`
	Addr   string `env:"TOLLGATE_ADDR" envDefault:":8080"`

	DatabaseFile string `env:"TOLLGATE_DATABASE_FILE" envDefault:"tollgate.db"`
	ClientsFile  string `env:"TOLLGATE_CLIENTS_FILE" envDefault:"clients.yaml"`

	// RedisURL, when set, moves the refresh token ledger into Redis so
	// several replicas share it.
	RedisURL string `env:"TOLLGATE_REDIS_URL"`

	ClaimsKey      string `env:"TOLLGATE_CLAIMS_KEY"`
	AdminAuthority string `env:"TOLLGATE_ADMIN_AUTHORITY" envDefault:"TOLLGATE_ADMIN"`

	ClientCacheCapacity int64         `env:"TOLLGATE_CLIENT_CACHE_CAPACITY" envDefault:"1000"`
	ClientCacheTTL      time.Duration `env:"TOLLGATE_CLIENT_CACHE_TTL" envDefault:"5m"`
	ClientLookupTimeout time.Duration `env:"TOLLGATE_CLIENT_LOOKUP_TIMEOUT" envDefault:"2s"`

	// The master key itself may also come from TOLLGATE_MASTER_KEY, which
	// cryptox reads directly.
	MasterKeyFile string `env:"TOLLGATE_MASTER_KEY_FILE"`
	PepperFile    string `env:"TOLLGATE_PEPPER_FILE" envDefault:"pepper"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

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
		return Config{}, fmt.Errorf("parse tollgate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail once tokens are minted.
func (c Config) Validate() error {
	if c.ClaimsKey != "" {
		if err := jwtx.ValidateClaimsKey(c.ClaimsKey); err != nil {
			return fmt.Errorf("TOLLGATE_CLAIMS_KEY: %w", err)
		}
	}
	return nil
}

// DSN is the sqlite connection string for DatabaseFile.
func (c Config) DSN() string {
	if c.DatabaseFile == ":memory:" {
		return c.DatabaseFile
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", c.DatabaseFile)
}
