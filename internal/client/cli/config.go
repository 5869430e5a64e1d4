// Package cli implements the interactive chat client: register/login menu,
// then chat mode with a background receive loop. Secrets (the shared message
// key and integrity secret) come from the environment, never from flags.
package cli

import (
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

const (
	EnvAESKey     = "LOCKTALK_AES_KEY"
	EnvHMACSecret = "LOCKTALK_HMAC_SECRET"
	EnvChatAddr   = "LOCKTALK_CHAT_ADDR"
	EnvAuthAddr   = "LOCKTALK_AUTH_ADDR"
)

type Config struct {
	ChatAddr   string
	AuthAddr   string
	AESKey     []byte
	HMACSecret []byte
}

// flagArgs is a seam for tests.
var flagArgs = func() []string { return os.Args[1:] }

// LoadConfig resolves addresses from defaults, environment, and flags, and
// loads the message key (base64, 16/24/32 bytes) and integrity secret from
// the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ChatAddr: "localhost:8080",
		AuthAddr: "localhost:8081",
	}

	if v, ok := os.LookupEnv(EnvChatAddr); ok {
		cfg.ChatAddr = v
	}
	if v, ok := os.LookupEnv(EnvAuthAddr); ok {
		cfg.AuthAddr = v
	}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&cfg.ChatAddr, "c", cfg.ChatAddr, "chat server address")
	fs.StringVar(&cfg.AuthAddr, "a", cfg.AuthAddr, "auth server address")
	if err := fs.Parse(flagArgs()); err != nil {
		return nil, err
	}

	keyB64, ok := os.LookupEnv(EnvAESKey)
	if !ok {
		return nil, fmt.Errorf("%s not set", EnvAESKey)
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", EnvAESKey, err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%s must decode to 16, 24, or 32 bytes, got %d", EnvAESKey, len(key))
	}
	cfg.AESKey = key

	secret, ok := os.LookupEnv(EnvHMACSecret)
	if !ok {
		return nil, fmt.Errorf("%s not set", EnvHMACSecret)
	}
	cfg.HMACSecret = []byte(secret)

	return cfg, nil
}
