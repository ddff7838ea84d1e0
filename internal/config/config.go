package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is populated from environment variables. A .env file in the
// working directory is loaded first when present.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Port     string `envconfig:"PORT" default:"8000"`

	// DataDir holds the flat JSON document used by the default backend.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// PostgresDSN switches the store to the Postgres backend when set.
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Auth is enabled only when AdminPassword is set.
	JWTSecret     string        `envconfig:"JWT_SECRET" default:"dev-secret"`
	AdminUser     string        `envconfig:"ADMIN_USER" default:"admin"`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"15m"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsToken   string `envconfig:"METRICS_TOKEN"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173,http://127.0.0.1:3000"`

	UploadRateLimit  int           `envconfig:"UPLOAD_RATE_LIMIT" default:"30"`
	UploadRateWindow time.Duration `envconfig:"UPLOAD_RATE_WINDOW" default:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Development() bool { return c.AppEnv == "development" }

func (c *Config) AuthEnabled() bool { return c.AdminPassword != "" }
