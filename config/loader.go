package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Settings file  (internal/settings)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GKNOCK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value; malformed numbers are ignored.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GKNOCK_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := os.LookupEnv("GKNOCK_OPEN_PORTS"); ok {
		cfg.OpenPorts = v
	}
	if v, ok := os.LookupEnv("GKNOCK_CLOSE_PORTS"); ok {
		cfg.ClosePorts = v
	}
	if n, ok := envUint("GKNOCK_DELAY"); ok {
		cfg.Delay = time.Duration(n) * time.Millisecond
	}
	if n, ok := envUint("GKNOCK_TIMEOUT"); ok && n > 0 {
		cfg.Timeout = secondsDuration(n)
	}
	if envBool("GKNOCK_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := os.Getenv("GKNOCK_CONFIG"); v != "" {
		cfg.SettingsPath = v
	}

	// SSH gateway
	if v := os.Getenv("GKNOCK_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("GKNOCK_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("GKNOCK_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("GKNOCK_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("GKNOCK_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if n, ok := envUint("GKNOCK_VERBOSE"); ok && n > 0 {
		cfg.Verbose = int(n)
	}
	if envBool("GKNOCK_LOG_JSON") {
		cfg.LogJSON = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envUint(key string) (uint64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec uint64) time.Duration {
	return time.Duration(sec) * time.Second
}
