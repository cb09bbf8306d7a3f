package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the PMQ_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Malformed values are
// ignored.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("PMQ_PERMISSIONS"); v != "" {
		if mode, err := ParsePermissions(v); err == nil {
			cfg.Permissions = mode
			cfg.PermissionsSet = true
		}
	}
	if v := envInt("PMQ_MAXMSG"); v > 0 {
		cfg.MaxMsg = int64(v)
		cfg.MaxMsgSet = true
	}
	if v := os.Getenv("PMQ_MSGSIZE"); v != "" {
		if n, err := ParseSize(v); err == nil && n > 0 {
			cfg.MsgSize = n
			cfg.MsgSizeSet = true
		}
	}
	if v := envDuration("PMQ_WAIT"); v > 0 {
		cfg.Wait = v
	}
	if v := envDuration("PMQ_POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = v
		cfg.PollIntervalSet = true
	}

	// Output
	if envBool("PMQ_DEBUG") {
		cfg.Debug = true
	}
	if v := envInt("PMQ_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
