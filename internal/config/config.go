// Package config loads server configuration from the environment, following
// a single explicit value threaded into constructors rather than
// package-level globals (spec §9 Design Notes — "no process-wide
// singletons").
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the EDMO control-plane server. It is loaded
// once in main() and passed explicitly to the components that need it.
type Config struct {
	Debug bool

	HTTPPort     string
	TerminalPort string

	UDPPort          int // local bind port for discovery, default 2123
	UDPBroadcastPort int // destination port for IDENTIFY broadcasts, default 2121

	SerialBaud int // default 115200

	TickHz int // target control-loop rate, default 40

	SessionLogDir string // root directory for session CSV logs

	RegisteringWaitTimeout time.Duration
}

// Load reads configuration from the environment, falling back to the
// defaults of SPEC_FULL.md §9 for anything unset. It does not read a .env
// file itself — callers load that first via godotenv, matching the
// teacher's main.go sequencing of godotenv.Load() before InitConfig().
func Load() Config {
	return Config{
		Debug:        os.Getenv("DEBUG") == "true",
		HTTPPort:     envOrDefault("HTTP_PORT", "8080"),
		TerminalPort: envOrDefault("TERMINAL_PORT", "9001"),

		UDPPort:          envIntOrDefault("UDP_PORT", 2123),
		UDPBroadcastPort: envIntOrDefault("UDP_BROADCAST_PORT", 2121),

		SerialBaud: envIntOrDefault("SERIAL_BAUD", 115200),

		TickHz: envIntOrDefault("TICK_HZ", 40),

		SessionLogDir: envOrDefault("SESSION_LOG_DIR", "./SessionLogs"),

		RegisteringWaitTimeout: 30 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
