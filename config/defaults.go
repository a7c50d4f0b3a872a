package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the settings file, and environment variable
// loading.

const (
	// DefaultHost is the knock target when nothing else is configured.
	DefaultHost = "127.0.0.1"

	// DefaultOpenPorts is the open sequence as the user would type it.
	DefaultOpenPorts = "5000, 6000, 7000"

	// DefaultClosePorts is the open sequence reversed.
	DefaultClosePorts = "7000, 6000, 5000"

	// DefaultDelay is the pause after each knock.
	DefaultDelay = 1000 * time.Millisecond

	// DefaultProbeTimeout bounds a single connection attempt.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the SSH gateway connection timeout.
	DefaultConnTimeout = 30 * time.Second
)
