// Package cmd wires up the CLI flags and dispatches to the knock core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"gknock/config"
	"gknock/internal/core"
	"gknock/internal/settings"
	"gknock/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gknock/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected gknock command.
func Execute(ctx context.Context, args []string) error {
	cfg, logger, err := configure(args)
	if err != nil || cfg == nil {
		return err
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// flagValues holds raw flag values.  Only flags the user actually set
// are applied, so that env vars and the settings file show through.
type flagValues struct {
	host, openPorts, closePorts string
	delayMillis, timeoutSec     int
	noDNS                       bool

	settingsPath string
	save         bool

	tunnel, sshKey, knownHosts        string
	sshPassword, sshAgent, strictHost bool

	verbose         int
	logJSON, dryRun bool
}

// configure builds the effective Config: defaults, then the settings
// file, then GKNOCK_* env vars, then flags.  A nil Config with a nil
// error means help or version was printed.
func configure(args []string) (*config.Config, *util.Logger, error) {
	var fv flagValues
	fs := flag.NewFlagSet("gknock", flag.ContinueOnError)

	// ── target ───────────────────────────────────────────────────
	fs.StringVarP(&fv.host, "host", "H", config.DefaultHost, "Host to knock")
	fs.StringVarP(&fv.openPorts, "open-ports", "o", config.DefaultOpenPorts, "Open sequence, comma separated")
	fs.StringVarP(&fv.closePorts, "close-ports", "c", config.DefaultClosePorts, "Close sequence, comma separated")
	fs.IntVarP(&fv.delayMillis, "delay", "d", int(config.DefaultDelay/time.Millisecond), "Delay after each knock in milliseconds")
	fs.IntVarP(&fv.timeoutSec, "timeout", "w", int(config.DefaultProbeTimeout/time.Second), "Per-knock connect timeout in seconds")
	fs.BoolVarP(&fv.noDNS, "no-dns", "n", false, "Numeric-only, no DNS resolution")

	// ── settings ─────────────────────────────────────────────────
	fs.StringVar(&fv.settingsPath, "config", "", "Settings file (default: user config dir)")
	fs.BoolVar(&fv.save, "save", false, "Save the effective target to the settings file")

	// ── SSH gateway ──────────────────────────────────────────────
	fs.StringVarP(&fv.tunnel, "tunnel", "T", "", "Knock from an SSH gateway [user@]host[:port]")
	fs.StringVar(&fv.sshKey, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&fv.sshPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&fv.sshAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&fv.strictHost, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&fv.knownHosts, "known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&fv.logJSON, "log-json", false, "Write logs as JSON")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Validate and print the sequences without knocking")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if showHelp {
		printUsage(fs)
		return nil, nil, nil
	}
	if showVersion {
		fmt.Printf("gknock %s\n", version)
		return nil, nil, nil
	}

	// ── positional command ───────────────────────────────────────
	rest := fs.Args()
	if len(rest) > 1 {
		return nil, nil, fmt.Errorf("too many arguments: %q (use --help for usage)", rest[1:])
	}
	var arg string
	if len(rest) == 1 {
		arg = rest[0]
	}
	command, err := config.ParseCommand(arg)
	if err != nil {
		return nil, nil, err
	}

	// ── logger and settings file ─────────────────────────────────
	// Env and flags decide verbosity and the settings path before the
	// file itself is read.
	pre := config.Default()
	config.LoadFromEnv(pre)
	fv.apply(fs, pre)

	logger := util.NewLogger(pre.Verbose)
	logger.SetJSON(pre.LogJSON)

	path := pre.SettingsPath
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			logger.Warn("%v", err)
			path = ""
		}
	}
	store := settings.NewFileStore(path, logger)

	cfg := config.Default()
	store.Load().Apply(cfg)
	config.LoadFromEnv(cfg)
	fv.apply(fs, cfg)
	cfg.SettingsPath = path
	cfg.Command = command

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.ResolveTunnel(); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Save && !cfg.DryRun {
		if err := store.Save(settings.FromConfig(cfg)); err != nil {
			return nil, nil, err
		}
		logger.Info("settings saved to %s", path)
	}

	return cfg, logger, nil
}

// apply copies every flag the user set onto cfg.
func (fv *flagValues) apply(fs *flag.FlagSet, cfg *config.Config) {
	set := fs.Changed

	if set("host") {
		cfg.Host = fv.host
	}
	if set("open-ports") {
		cfg.OpenPorts = fv.openPorts
	}
	if set("close-ports") {
		cfg.ClosePorts = fv.closePorts
	}
	if set("delay") {
		cfg.Delay = time.Duration(fv.delayMillis) * time.Millisecond
	}
	if set("timeout") {
		cfg.Timeout = time.Duration(fv.timeoutSec) * time.Second
	}
	if set("no-dns") {
		cfg.NoDNS = fv.noDNS
	}
	if set("config") {
		cfg.SettingsPath = fv.settingsPath
	}
	if set("save") {
		cfg.Save = fv.save
	}
	if set("tunnel") {
		cfg.TunnelSpec = fv.tunnel
	}
	if set("ssh-key") {
		cfg.SSHKeyPath = fv.sshKey
	}
	if set("ssh-password") {
		cfg.SSHPassword = fv.sshPassword
	}
	if set("ssh-agent") {
		cfg.UseSSHAgent = fv.sshAgent
	}
	if set("strict-hostkey") {
		cfg.StrictHostKey = fv.strictHost
	}
	if set("known-hosts") {
		cfg.KnownHostsPath = fv.knownHosts
	}
	if set("verbose") {
		cfg.Verbose = fv.verbose
	}
	if set("log-json") {
		cfg.LogJSON = fv.logJSON
	}
	if set("dry-run") {
		cfg.DryRun = fv.dryRun
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gknock – TCP port knocking client v%s

Knocks an ordered list of TCP ports on a host, pausing after each one.

Usage:
  gknock [options] open        Knock the open sequence once
  gknock [options] close       Knock the close sequence once
  gknock [options] [session]   Interactive session (default)

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  gknock -H fw.example.com open                  Knock 5000, 6000, 7000
  gknock -H 10.0.0.1 -o "7000,8000" -d 500 open  Custom sequence, 500 ms apart
  gknock -T admin@bastion -H db-internal open    Knock from an SSH gateway
  gknock -H fw.example.com --save                Remember the target, then start a session

In a session, quitting (or Ctrl-C) knocks the close sequence before exiting.
`)
}
