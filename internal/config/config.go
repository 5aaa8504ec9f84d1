package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Store          string        `env:"STORE" envDefault:"memory"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"./codewords.db"`
	CASRetries     int           `env:"CAS_RETRIES" envDefault:"5"`
	RoomTTL        time.Duration `env:"ROOM_TTL" envDefault:"3h"`
	WordsFile      string        `env:"WORDS_FILE"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimit      float64       `env:"RATE_LIMIT" envDefault:"5"`
	RateBurst      int           `env:"RATE_BURST" envDefault:"10"`
	AdminUser      string        `env:"ADMIN_USER"`
	AdminPass      string        `env:"ADMIN_PASS"`
	ExportEnabled  bool          `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile     string        `env:"EXPORT_FILE" envDefault:"./codewords-results.txt"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE %q (want %s or %s)", c.Store, StoreMemory, StoreSQLite)
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("ROOM_TTL must be positive, got %s", c.RoomTTL)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}

// AdminEnabled reports whether the basic-auth admin routes are mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminUser != "" && c.AdminPass != ""
}
