package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names. Secrets are expected to arrive this way rather
// than on the command line.
const (
	EnvChatAddr    = "LOCKTALK_CHAT_ADDR"
	EnvAuthAddr    = "LOCKTALK_AUTH_ADDR"
	EnvDatabaseDSN = "LOCKTALK_DATABASE_DSN"
	EnvJWTSecret   = "LOCKTALK_JWT_SECRET"
	EnvHMACSecret  = "LOCKTALK_HMAC_SECRET"
	EnvTokenTTL    = "LOCKTALK_TOKEN_TTL"
	EnvMaxClients  = "LOCKTALK_MAX_CLIENTS"
)

// parseEnv overlays Config fields from the environment. Unset or unparsable
// variables leave the current value untouched.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv(EnvChatAddr); ok {
		config.ChatAddr = v
	}
	if v, ok := os.LookupEnv(EnvAuthAddr); ok {
		config.AuthAddr = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv(EnvJWTSecret); ok {
		config.JWTSecret = v
	}
	if v, ok := os.LookupEnv(EnvHMACSecret); ok {
		config.HMACSecret = v
	}
	if v, ok := os.LookupEnv(EnvTokenTTL); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.TokenTTL = d
		}
	}
	if v, ok := os.LookupEnv(EnvMaxClients); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxClients = n
		}
	}
}
