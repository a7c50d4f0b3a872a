package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"gknock/internal/notify"
)

// DryRunMode prints what would be knocked without touching the network.
type DryRunMode struct {
	Target  *Target
	Gateway string // user@host:port, empty for direct knocks
	Out     io.Writer
}

// Run writes the parsed target to Out.
func (m *DryRunMode) Run(_ context.Context) error {
	fmt.Fprintln(m.Out, m.Target.String())
	if m.Gateway != "" {
		fmt.Fprintf(m.Out, "via    %s\n", m.Gateway)
	}
	for _, kind := range []notify.Kind{notify.Open, notify.Close} {
		ports, host, delay := m.Target.Sequence(kind)
		if len(ports) == 0 {
			fmt.Fprintf(m.Out, "%s: nothing to knock\n", kind)
			continue
		}
		fmt.Fprintf(m.Out, "%s: %d knocks to %s, %s total delay\n",
			kind, len(ports), host, delay*time.Duration(len(ports)))
	}
	return nil
}
