package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "bookstore.db", cfg.DBDSN)
	assert.Equal(t, "auto", cfg.CompletionBackend)
	assert.Equal(t, 2, cfg.CompletionRetries)
	assert.Equal(t, 16, cfg.HistoryWindow)
	assert.InDelta(t, 0.55, cfg.WeightLexical, 1e-9)
	assert.InDelta(t, 0.35, cfg.WeightVector, 1e-9)
	assert.Contains(t, cfg.ConfirmTokens, "ok")
	assert.Contains(t, cfg.ConfirmTokens, "xacnhan")

	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BOOKAGENT_DB_DRIVER", "postgres")
	t.Setenv("BOOKAGENT_DB_DSN", "host=localhost dbname=books")
	t.Setenv("BOOKAGENT_WEIGHT_LEXICAL", "0.7")
	t.Setenv("BOOKAGENT_CONFIRM_TOKENS", "ok, yes ,")

	cfg := FromEnv()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.InDelta(t, 0.7, cfg.WeightLexical, 1e-9)
	assert.Equal(t, []string{"ok", "yes"}, cfg.ConfirmTokens)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.DBDriver = "oracle" }},
		{"empty dsn", func(c *Config) { c.DBDSN = " " }},
		{"bad backend", func(c *Config) { c.CompletionBackend = "bard" }},
		{"negative retries", func(c *Config) { c.CompletionRetries = -1 }},
		{"zero history", func(c *Config) { c.HistoryWindow = 0 }},
		{"weight out of range", func(c *Config) { c.WeightVector = 1.5 }},
		{"no confirm tokens", func(c *Config) { c.ConfirmTokens = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
