package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const ProductionEnv = "production"

type Config struct {
	Env           string        `env:"APP_ENV"         envDefault:"development"`
	BotName       string        `env:"BOT_NAME"`
	Token         string        `env:"TOKEN"`
	BackendURL    string        `env:"BACKEND_URL,required,notEmpty"`
	DBPath        string        `env:"DB_PATH"         envDefault:"db.sqlite"`
	ListenAddr    string        `env:"LISTEN_ADDR"     envDefault:":3000"`
	PublicURL     string        `env:"PUBLIC_URL"`
	PageSize      int           `env:"PAGE_SIZE"       envDefault:"3"`
	Timezone      string        `env:"TIMEZONE"        envDefault:"UTC"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT"   envDefault:"20s"`
	LoginMaxAge   time.Duration `env:"LOGIN_MAX_AGE"   envDefault:"24h"`
	SessionTTL    time.Duration `env:"SESSION_TTL"     envDefault:"720h"`
	FeedIdleTTL   time.Duration `env:"FEED_IDLE_TTL"   envDefault:"1h"`
	FeedCacheSize int           `env:"FEED_CACHE_SIZE" envDefault:"1024"`
}

func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Env = strings.TrimSpace(cfg.Env)
	cfg.BotName = strings.TrimPrefix(strings.TrimSpace(cfg.BotName), "@")
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Production() bool {
	return c.Env == ProductionEnv
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location (timezone = %s): %w", c.Timezone, err)
	}

	return loc, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Production() && c.Token == "" {
		errs = append(errs, errors.New("TOKEN is required in production"))
	}
	if c.Production() && c.BotName == "" {
		errs = append(errs, errors.New("BOT_NAME is required in production"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive (got %d)", c.PageSize))
	}
	if c.FeedCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("FEED_CACHE_SIZE must be positive (got %d)", c.FeedCacheSize))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
