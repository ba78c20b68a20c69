package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port               int           `envconfig:"PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL        string        `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns   int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	RedisURL           string        `envconfig:"REDIS_URL" default:""`
	Version            string        `envconfig:"VERSION" default:"dev"`
	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"12"`
	OwnerEmail         string        `envconfig:"OWNER_EMAIL" default:"owner@localhost"`
	ReconcilerSchedule string        `envconfig:"RECONCILER_SCHEDULE" default:"@every 1m"`
	InFlightTTL        time.Duration `envconfig:"INFLIGHT_TTL" default:"30s"`
	NotifyChannel      string        `envconfig:"NOTIFY_CHANNEL" default:"useradmin:toasts"`
	RunMigrations      bool          `envconfig:"RUN_MIGRATIONS" default:"true"`

	AdvancedPermissions bool `envconfig:"FEATURE_ADVANCED_PERMISSIONS" default:"false"`
}

// Features is the set of licensed feature toggles.
type Features struct {
	AdvancedPermissions bool `json:"advancedPermissions"`
}

// Features returns the feature toggles carried by the configuration.
func (c *Config) Features() Features {
	return Features{AdvancedPermissions: c.AdvancedPermissions}
}

// Load reads configuration from environment variables into a Config struct.
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CLIConfig holds settings for the useradmin command line client.
type CLIConfig struct {
	Server  string        `envconfig:"USERADMIN_SERVER" default:"http://localhost:8080"`
	APIKey  string        `envconfig:"USERADMIN_API_KEY" default:""`
	Timeout time.Duration `envconfig:"USERADMIN_TIMEOUT" default:"15s"`
}

// LoadCLI reads the command line client configuration.
func LoadCLI() (*CLIConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
