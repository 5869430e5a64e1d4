package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.ChatAddr)
	assert.Equal(t, ":8081", cfg.AuthAddr)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.MaxClients)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.HMACSecret)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv(EnvChatAddr, ":9000")
	t.Setenv(EnvJWTSecret, "env-jwt")
	t.Setenv(EnvHMACSecret, "env-hmac")
	t.Setenv(EnvTokenTTL, "2h")
	t.Setenv(EnvMaxClients, "25")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9000", cfg.ChatAddr)
	assert.Equal(t, ":8081", cfg.AuthAddr, "unset variables keep defaults")
	assert.Equal(t, "env-jwt", cfg.JWTSecret)
	assert.Equal(t, "env-hmac", cfg.HMACSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 25, cfg.MaxClients)
}

func TestParseEnv_Unparsable(t *testing.T) {
	t.Setenv(EnvTokenTTL, "not a duration")
	t.Setenv(EnvMaxClients, "-3")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.MaxClients)
}

func TestParseFlags_Overlay(t *testing.T) {
	orig := flagArgs
	t.Cleanup(func() { flagArgs = orig })
	flagArgs = func() []string {
		return []string{"-c", ":7000", "-a", ":7001", "-d", "postgres://u@h/db", "-t", "48", "-n", "3"}
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7000", cfg.ChatAddr)
	assert.Equal(t, ":7001", cfg.AuthAddr)
	assert.Equal(t, "postgres://u@h/db", cfg.DatabaseDSN)
	assert.Equal(t, 48*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.MaxClients)
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Setenv(EnvChatAddr, ":9000")

	orig := flagArgs
	t.Cleanup(func() { flagArgs = orig })
	flagArgs = func() []string { return []string{"-c", ":7000"} }

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, ":7000", cfg.ChatAddr, "flags win over environment")
}
