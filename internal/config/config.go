package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT" envDefault:"8080"`

	// Base URL of the remote ranking API.
	RankingAPIURL string `env:"RANKING_API_URL,required"`

	// Webhook that receives freshly ingested power snapshots. Empty
	// disables notifications.
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	// EventsDisabled turns off the daily schedule-sync and backlog-drain
	// job entirely.
	EventsDisabled bool `env:"EVENTS_DISABLED" envDefault:"false"`

	// BacklogDelay is the minimum wait between consecutive backlog
	// fetches during the daily drain.
	BacklogDelay time.Duration `env:"BACKLOG_DELAY" envDefault:"60s"`

	// CacheDir holds the disk-backed report cache.
	CacheDir string `env:"CACHE_DIR" envDefault:"/var/lib/ladderd/cache"`

	// Report cache TTLs.
	DistributionTTL time.Duration `env:"DISTRIBUTION_TTL" envDefault:"24h"`
	TopPlayersTTL   time.Duration `env:"TOP_PLAYERS_TTL" envDefault:"30m"`
	EventsReportTTL time.Duration `env:"EVENTS_REPORT_TTL" envDefault:"6h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://statdeck.gg"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
