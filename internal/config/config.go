package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr              string        `env:"CHAT_ADDR" envDefault:":8000"`
	DatabaseURL       string        `env:"CHAT_DB_CONN,required"`
	JWTSecret         string        `env:"CHAT_JWT_SECRET,required"`
	HeartbeatInterval time.Duration `env:"CHAT_HEARTBEAT_INTERVAL" envDefault:"30s"`
	StoreTimeout      time.Duration `env:"CHAT_STORE_TIMEOUT" envDefault:"3s"`
	LogLevel          string        `env:"CHAT_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
