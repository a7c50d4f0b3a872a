// Package transport provides abstractions for network connection
// establishment.  A knock only needs the connection attempt itself, so
// callers close whatever Dial returns straight away.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH-tunnelled dialer that makes the
// connection attempt from a gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Connector is implemented by dialers that hold a session which can be
// established ahead of the first Dial.
type Connector interface {
	Connect(ctx context.Context) error
}
