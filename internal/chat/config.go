package chat

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server's runtime settings, loaded from the environment
// with sane defaults. The listen port and accept timeout defaults match the
// historical protocol deployment.
type Config struct {
	Addr          string        `env:"CHAT_ADDR" envDefault:":8189"`
	MetricsAddr   string        `env:"CHAT_METRICS_ADDR" envDefault:":9090"`
	CredsPath     string        `env:"CHAT_CREDS_DB" envDefault:"chat.db"`
	AcceptTimeout time.Duration `env:"CHAT_ACCEPT_TIMEOUT" envDefault:"2s"`
	AuthDeadline  time.Duration `env:"CHAT_AUTH_DEADLINE" envDefault:"2m"`
	SweepInterval time.Duration `env:"CHAT_SWEEP_INTERVAL" envDefault:"1s"`
	EventBuffer   int           `env:"CHAT_EVENT_BUFFER" envDefault:"128"`
	OutBuffer     int           `env:"CHAT_OUT_BUFFER" envDefault:"32"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
