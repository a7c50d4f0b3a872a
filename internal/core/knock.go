package core

import (
	"context"
	"fmt"

	"gknock/internal/knock"
	"gknock/internal/notify"
	"gknock/internal/transport"
	"gknock/util"
)

// KnockMode knocks one sequence and returns when it has finished.
type KnockMode struct {
	Kind      notify.Kind
	Target    *Target
	Dialer    transport.Dialer
	Sequencer *knock.Sequencer
	Logger    *util.Logger
}

// Run connects the gateway (if any), knocks the selected sequence and
// waits for it to complete.  An empty port list is not an error.
func (m *KnockMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	ports, host, delay := m.Target.Sequence(m.Kind)
	if len(ports) == 0 {
		m.Logger.Warn("%s port list is empty; nothing to knock", m.Kind)
		return nil
	}

	if err := connect(ctx, m.Dialer); err != nil {
		return err
	}

	if !m.Sequencer.Start(m.Kind, ports, host, delay) {
		return fmt.Errorf("%s sequence could not be started", m.Kind)
	}

	select {
	case <-m.Sequencer.Done():
		return nil
	case <-ctx.Done():
		m.Logger.Warn("interrupted; %s sequence abandoned", m.Kind)
		return ctx.Err()
	}
}

// connect establishes a dialer's long-lived session ahead of the first
// knock, so gateway problems surface before any run starts.
func connect(ctx context.Context, d transport.Dialer) error {
	if c, ok := d.(transport.Connector); ok {
		return c.Connect(ctx)
	}
	return nil
}
