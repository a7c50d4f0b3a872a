// Package tunnel lets knocks originate from an SSH gateway instead of
// the local host.  Each probe becomes a direct-tcpip channel opened by
// the gateway, so the target sees the connection attempt coming from
// the gateway's address.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connection
// attempts can be forwarded.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial asks the gateway to connect to address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}
