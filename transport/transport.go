// Package transport defines the data-link socket abstraction SNEP runs over.
// LLCP itself is implemented elsewhere: the wire codec, fragmentation
// engine, client, and server only ever see these interfaces, so a real LLCP
// binding can be substituted without touching SNEP logic. Package llcpsim
// supplies a concrete, message-preserving implementation over a net.Conn
// for use by the CLI entrypoints and by tests that have no physical NFC
// hardware.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrConnectionRefused is returned by a Dialer when the peer actively
// refused the data-link connection (LLCP CONNECT_REFUSED). It is not a
// transport failure: callers (snep.Client.Connect) surface it as a plain
// false return, never as an error value.
var ErrConnectionRefused = errors.New("snep/transport: connection refused")

// DataLinkSocket is a connected LLCP data-link connection socket, as consumed
// by both the SNEP client and a single accepted server connection.
//
// Send and Recv preserve LLCP's message-boundary semantics: a single Send
// call corresponds to exactly one LLCP SDU, and a single Recv call returns
// exactly the bytes of the next SDU the peer sent (or (nil, io.EOF) once the
// peer has closed the connection). Blocking Recv calls with no data pending
// MUST respect ctx cancellation.
type DataLinkSocket interface {
	// Send transmits data as a single LLCP SDU. It must not exceed SendMIU.
	Send(ctx context.Context, data []byte) error
	// Recv blocks until the next SDU arrives, the peer closes the connection
	// (returning io.EOF), or ctx is done.
	Recv(ctx context.Context) ([]byte, error)
	// Poll reports whether an SDU becomes available to Recv within timeout.
	Poll(ctx context.Context, timeout time.Duration) bool
	// SendMIU is this connection's send-direction Maximum Information Unit,
	// fixed at connection establishment.
	SendMIU() int
	// RemoteAddr identifies the peer, for logging.
	RemoteAddr() string
	// Close releases the socket. Close is idempotent.
	Close() error
}

// DataLinkListener binds a SNEP service name and accepts inbound data-link
// connections, mirroring nfc.llcp.Socket's bind/listen/accept lifecycle.
type DataLinkListener interface {
	// SetRecvMIU requests a receive-direction MIU and returns the value LLCP
	// actually accepted.
	SetRecvMIU(miu int) (int, error)
	// SetRecvBuf requests a receive window and returns the value LLCP
	// actually accepted.
	SetRecvBuf(buf int) (int, error)
	// Bind registers the listener under serviceName (e.g. "urn:nfc:sn:snep").
	Bind(serviceName string) error
	// Listen marks the bound socket ready to accept, with the given backlog.
	Listen(backlog int) error
	// Accept blocks for the next inbound data-link connection.
	Accept(ctx context.Context) (DataLinkSocket, error)
	// Addr identifies the bound service, for logging.
	Addr() string
	// Close releases the listening socket. Close is idempotent.
	Close() error
}
