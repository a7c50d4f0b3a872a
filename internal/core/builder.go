package core

import (
	"fmt"
	"io"
	"os"

	"gknock/config"
	"gknock/internal/console"
	"gknock/internal/knock"
	"gknock/internal/metrics"
	"gknock/internal/notify"
	"gknock/internal/probe"
	"gknock/internal/settings"
	"gknock/internal/transport"
	"gknock/tunnel"
	"gknock/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Port-list diagnostics are reported while building, before any mode
// runs.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	return build(cfg, logger, os.Stdin, os.Stdout)
}

func build(cfg *config.Config, logger *util.Logger, in io.Reader, out io.Writer) (Mode, error) {
	m := metrics.New()
	con := console.New(in, out)
	sink := notify.Multi{con, notify.LogSink{Logger: logger}}
	target := NewTarget(cfg, sink, m)

	if cfg.DryRun {
		return &DryRunMode{Target: target, Gateway: gatewayLabel(cfg), Out: out}, nil
	}

	dialer := buildDialer(cfg, logger)
	prober := &probe.DialProber{
		Dialer:  dialer,
		Timeout: cfg.Timeout,
		Logger:  logger.With("component", "probe"),
		Metrics: m,
	}
	seq := knock.New(prober, sink,
		knock.WithLogger(logger.With("component", "knock")),
		knock.WithMetrics(m))

	switch cfg.Command {
	case config.CommandOpen:
		return &KnockMode{Kind: notify.Open, Target: target, Dialer: dialer, Sequencer: seq, Logger: logger}, nil
	case config.CommandClose:
		return &KnockMode{Kind: notify.Close, Target: target, Dialer: dialer, Sequencer: seq, Logger: logger}, nil
	case config.CommandSession:
		return &SessionMode{
			Target:    target,
			Dialer:    dialer,
			Sequencer: seq,
			Console:   con,
			Store:     settings.NewFileStore(cfg.SettingsPath, logger),
			Sink:      sink,
			Metrics:   m,
			Logger:    logger,
		}, nil
	}
	return nil, fmt.Errorf("unknown command %q", cfg.Command)
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   config.DefaultConnTimeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

func gatewayLabel(cfg *config.Config) string {
	if !cfg.TunnelEnabled {
		return ""
	}
	addr := util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort)
	if cfg.TunnelUser == "" {
		return addr
	}
	return cfg.TunnelUser + "@" + addr
}
