package config

import (
	"flag"
	"os"
	"time"
)

// flagArgs is a seam for tests.
var flagArgs = func() []string { return os.Args[1:] }

// parseFlags overlays selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-c string   chat bind address (e.g., ":8080")
//	-a string   auth bind address (e.g., ":8081")
//	-d string   PostgreSQL DSN; empty keeps the user directory in memory
//	-t int      credential lifetime, hours
//	-n int      maximum concurrent chat clients
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.ChatAddr, "c", config.ChatAddr, "chat listener address")
	fs.StringVar(&config.AuthAddr, "a", config.AuthAddr, "auth listener address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Hours()), "credential lifetime (in hours)")
	fs.IntVar(&config.MaxClients, "n", config.MaxClients, "maximum concurrent clients")

	if err := fs.Parse(flagArgs()); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Hour
}
