// Package config defines the runtime configuration for gknock and
// provides helpers for parsing gateway specifications and validating
// the knock target.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	kerr "gknock/internal/errors"
	"gknock/util"
)

// Command selects what gknock does once configured.
type Command string

const (
	CommandOpen    Command = "open"    // knock the open sequence once
	CommandClose   Command = "close"   // knock the close sequence once
	CommandSession Command = "session" // interactive session
)

// ParseCommand maps a positional argument onto a Command.  An empty
// argument selects the interactive session.
func ParseCommand(arg string) (Command, error) {
	switch c := Command(arg); c {
	case "":
		return CommandSession, nil
	case CommandOpen, CommandClose, CommandSession:
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q (want open, close or session)", arg)
}

// Config holds every tuneable for a single gknock invocation.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	Host       string
	OpenPorts  string // raw comma-separated text, parsed at use
	ClosePorts string
	Delay      time.Duration // pause after each knock
	Timeout    time.Duration // per-probe connect timeout
	NoDNS      bool

	// ── Settings file ────────────────────────────────────────────────
	SettingsPath string
	Save         bool // persist the effective target before running

	// ── SSH gateway ──────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	LogJSON bool
	DryRun  bool

	Command Command
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:       DefaultHost,
		OpenPorts:  DefaultOpenPorts,
		ClosePorts: DefaultClosePorts,
		Delay:      DefaultDelay,
		Timeout:    DefaultProbeTimeout,
		Command:    CommandSession,
	}
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec, if set, into the Tunnel* fields.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &kerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@gateway[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent and
// that the knock host is well formed.  Port lists are not checked here:
// bad entries are reported as diagnostics and skipped when knocking.
func (c *Config) Validate() error {
	if err := util.ValidateHost(c.Host, c.NoDNS); err != nil {
		hint := "use a hostname or an IP address"
		if c.NoDNS {
			hint = "--no-dns requires a numeric IP address"
		}
		return &kerr.ConfigError{Field: "host", Value: c.Host, Message: err.Error(), Hint: hint}
	}

	if c.Delay < 0 {
		return &kerr.ConfigError{Field: "delay", Value: c.Delay.Milliseconds(), Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &kerr.ConfigError{Field: "timeout", Value: int(c.Timeout / time.Second), Message: "must not be negative"}
	}

	switch c.Command {
	case CommandOpen, CommandClose, CommandSession:
	default:
		return fmt.Errorf("unknown command %q (want open, close or session)", c.Command)
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &kerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "tunnel host is required",
			Hint:    "use -T user@gateway[:port]",
		}
	}

	return nil
}
