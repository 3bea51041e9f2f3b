package config

import (
	"auctions/internal/database"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings read from the environment
type Config struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	DBDriver       string        `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN          string        `envconfig:"DB_DSN" default:"auctions.db?_foreign_keys=on"`
	SessionSecret  string        `envconfig:"SESSION_SECRET"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SecureCookies  bool          `envconfig:"SECURE_COOKIES" default:"false"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	RateLimit      int           `envconfig:"RATE_LIMIT" default:"30"`
	RateWindow     time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	SeedCategories []string      `envconfig:"SEED_CATEGORIES" default:"Fashion,Toys,Electronics,Home"`
}

// Load reads an optional .env file and then the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot type-check on its own
func (c Config) Validate() error {
	switch c.DBDriver {
	case database.DriverSQLite, database.DriverMySQL:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("config: DB_DSN is required")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RedisAddr != "" && (c.RateLimit <= 0 || c.RateWindow <= 0) {
		return errors.New("config: RATE_LIMIT and RATE_WINDOW must be positive when REDIS_ADDR is set")
	}
	return nil
}
