package llcpsim

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/nfctools/snep/transport"
)

// Listener is a net.Listener-backed stand-in for an LLCP listening socket
// bound to a single SNEP service name, mirroring nfc.llcp.Socket's
// bind/listen/accept lifecycle.
type Listener struct {
	addr        string
	serviceName string
	recvMIU     int
	recvBuf     int
	ln          net.Listener
}

// defaultRecvMIU and defaultRecvBuf are the listening-socket defaults for a
// fresh server.
const (
	defaultRecvMIU = 1984
	defaultRecvBuf = 15
)

// NewListener builds a Listener that will bind addr once Listen is called.
func NewListener(addr string) *Listener {
	return &Listener{addr: addr, recvMIU: defaultRecvMIU, recvBuf: defaultRecvBuf}
}

// SetRecvMIU records the receive MIU to offer inbound connections.
// llcpsim always grants the requested value.
func (l *Listener) SetRecvMIU(miu int) (int, error) {
	l.recvMIU = miu
	return miu, nil
}

// SetRecvBuf records the receive window to offer inbound connections.
// llcpsim always grants the requested value.
func (l *Listener) SetRecvBuf(buf int) (int, error) {
	l.recvBuf = buf
	return buf, nil
}

// Bind registers the service name this listener accepts CONNECT requests
// for.
func (l *Listener) Bind(serviceName string) error {
	l.serviceName = serviceName
	return nil
}

// Listen opens the underlying TCP listener. backlog is accepted for
// interface parity with LLCP's listen(backlog) but net.Listen has no
// equivalent knob, so it is otherwise unused.
func (l *Listener) Listen(backlog int) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("llcpsim: listening on %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Accept blocks for the next inbound connection and performs the
// SNEP-CONNECT handshake. llcpsim has no separate link-layer MIU
// negotiation to draw on, so it grants the new connection a send MIU equal
// to this listener's configured receive MIU; a real LLCP binding would
// instead report whatever MIU the remote peer advertised in its CONNECT
// frame.
func (l *Listener) Accept(ctx context.Context) (transport.DataLinkSocket, error) {
	type result struct {
		nc  net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		nc, err := l.ln.Accept()
		ch <- result{nc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("llcpsim: accept: %w", r.err)
		}
		rw := bufio.NewReadWriter(bufio.NewReader(r.nc), bufio.NewWriter(r.nc))
		if err := serverHandshake(rw, l.serviceName, l.recvMIU); err != nil {
			r.nc.Close()
			return nil, fmt.Errorf("llcpsim: handshake: %w", err)
		}
		return newConn(r.nc, rw, l.recvMIU), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Addr identifies the bound service, for logging.
func (l *Listener) Addr() string {
	return fmt.Sprintf("%s (%s)", l.serviceName, l.addr)
}

// Close releases the listening socket. Idempotent.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

var _ transport.DataLinkListener = (*Listener)(nil)
