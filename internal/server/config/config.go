// Package config handles configuration for the server component:
// defaults, environment overlay (secrets live there), and command-line flags.
package config

import "time"

// Config holds runtime settings for the LockTalk server.
//
// Fields:
//   - ChatAddr / AuthAddr: bind addresses for the chat and auth listeners.
//   - DatabaseDSN: PostgreSQL DSN (pgx); empty keeps the directory in memory.
//   - JWTSecret: HMAC secret for signing credentials (HS256).
//   - HMACSecret: shared secret for message integrity tags.
//   - TokenTTL: credential lifetime.
//   - MaxClients: registry capacity ceiling.
type Config struct {
	ChatAddr    string
	AuthAddr    string
	DatabaseDSN string
	JWTSecret   string
	HMACSecret  string
	TokenTTL    time.Duration
	MaxClients  int
}

// LoadDefaults populates Config with development defaults.
// NOTE: The secret values are insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.ChatAddr = ":8080"
	c.AuthAddr = ":8081"
	c.DatabaseDSN = ""
	c.JWTSecret = "dev-jwt-secret"
	c.HMACSecret = "dev-hmac-secret"
	c.TokenTTL = 24 * time.Hour
	c.MaxClients = 10
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
