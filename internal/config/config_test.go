package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ladderd")
	t.Setenv("RANKING_API_URL", "https://rank-api.example.gg")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.EventsDisabled)
	assert.Equal(t, 60*time.Second, cfg.BacklogDelay)
	assert.Equal(t, 24*time.Hour, cfg.DistributionTTL)
	assert.Equal(t, 30*time.Minute, cfg.TopPlayersTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ladderd")
	t.Setenv("RANKING_API_URL", "https://rank-api.example.gg")
	t.Setenv("EVENTS_DISABLED", "true")
	t.Setenv("BACKLOG_DELAY", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.EventsDisabled)
	assert.Equal(t, 90*time.Second, cfg.BacklogDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
