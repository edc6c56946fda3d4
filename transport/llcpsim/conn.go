// Package llcpsim is a net.Conn-backed stand-in for an LLCP data-link
// connection: a buffered framing layer over TCP with a textual
// connection-establishment handshake, since no hardware LLCP stack is
// available to this module. It preserves LLCP's two load-bearing
// properties that the rest of this module depends on: message-boundary-
// preserving Send/Recv, and a per-connection negotiated send MIU.
package llcpsim

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nfctools/snep/transport"
)

// dialTimeout bounds how long Dial waits for the underlying TCP connect.
const dialTimeout = 5 * time.Second

// frameHeaderLen is the length, in bytes, of the length-prefix this package
// puts in front of every SDU to preserve LLCP's message-boundary semantics
// over the underlying byte stream.
const frameHeaderLen = 4

// maxFrameLen rejects absurd length prefixes from a misbehaving peer.
const maxFrameLen = 16 << 20

// Conn is a single simulated LLCP data-link connection.
type Conn struct {
	nc      net.Conn
	rw      *bufio.ReadWriter
	sendMIU int

	frames chan []byte
	errs   chan error

	peekMu  sync.Mutex
	peeked  []byte
	hasPeek bool
}

// newConn wraps an already-handshaken net.Conn and the buffered reader/
// writer the handshake used (so no buffered bytes are lost), starting the
// background reader that turns the byte stream back into discrete SDUs.
func newConn(nc net.Conn, rw *bufio.ReadWriter, sendMIU int) *Conn {
	c := &Conn{
		nc:      nc,
		rw:      rw,
		sendMIU: sendMIU,
		frames:  make(chan []byte, 8),
		errs:    make(chan error, 1),
	}
	go c.readLoop()
	return c
}

// readLoop continuously reads length-prefixed frames off the wire and
// publishes them on c.frames, terminating on the first error (including
// io.EOF at peer close) by publishing it once on c.errs.
func (c *Conn) readLoop() {
	for {
		frame, err := c.readFrame()
		if err != nil {
			c.errs <- err
			close(c.frames)
			return
		}
		c.frames <- frame
	}
}

func (c *Conn) readFrame() ([]byte, error) {
	lenBuf := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(c.rw, lenBuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf)
	if n > maxFrameLen {
		return nil, fmt.Errorf("llcpsim: frame of %d bytes exceeds sanity limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.rw, payload); err != nil {
		return nil, fmt.Errorf("llcpsim: reading %d-byte payload: %w", n, err)
	}
	return payload, nil
}

// Send transmits data as a single length-prefixed SDU.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if len(data) > c.sendMIU {
		return fmt.Errorf("llcpsim: send of %d bytes exceeds send MIU %d", len(data), c.sendMIU)
	}
	lenBuf := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := c.rw.Write(lenBuf); err != nil {
		return fmt.Errorf("llcpsim: writing frame length: %w", err)
	}
	if _, err := c.rw.Write(data); err != nil {
		return fmt.Errorf("llcpsim: writing frame payload: %w", err)
	}
	if err := c.rw.Flush(); err != nil {
		return fmt.Errorf("llcpsim: flushing frame: %w", err)
	}
	return nil
}

// Recv blocks until the next SDU arrives, ctx is done, or the peer closes
// the connection (io.EOF).
func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	c.peekMu.Lock()
	if c.hasPeek {
		frame := c.peeked
		c.peeked = nil
		c.hasPeek = false
		c.peekMu.Unlock()
		return frame, nil
	}
	c.peekMu.Unlock()

	select {
	case frame, ok := <-c.frames:
		if !ok {
			return nil, c.closeErr()
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) closeErr() error {
	select {
	case err := <-c.errs:
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("llcpsim: %w", err)
	default:
		return io.EOF
	}
}

// Poll reports whether a full SDU becomes readable within timeout, caching
// it for the following Recv call if so.
func (c *Conn) Poll(ctx context.Context, timeout time.Duration) bool {
	c.peekMu.Lock()
	if c.hasPeek {
		c.peekMu.Unlock()
		return true
	}
	c.peekMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return false
		}
		c.peekMu.Lock()
		c.peeked = frame
		c.hasPeek = true
		c.peekMu.Unlock()
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// SendMIU is this connection's negotiated send-direction MIU.
func (c *Conn) SendMIU() int { return c.sendMIU }

// RemoteAddr identifies the peer.
func (c *Conn) RemoteAddr() string { return c.nc.RemoteAddr().String() }

// Close releases the underlying TCP connection. Idempotent.
func (c *Conn) Close() error { return c.nc.Close() }

var _ transport.DataLinkSocket = (*Conn)(nil)

// Dialer implements snep.Dialer over llcpsim.
type Dialer struct {
	addr string
}

// NewDialer builds a snep.Dialer that opens simulated LLCP data-link
// connections to a listener started with NewListener at addr.
func NewDialer(addr string) *Dialer {
	return &Dialer{addr: addr}
}

// Dial opens a TCP connection to the simulated peer and performs the
// SNEP-CONNECT handshake, negotiating the send MIU for the new connection.
func (d *Dialer) Dial(ctx context.Context, serviceName string) (transport.DataLinkSocket, error) {
	nd := net.Dialer{Timeout: dialTimeout}
	nc, err := nd.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("llcpsim: dialing %s: %w", d.addr, err)
	}
	rw := bufio.NewReadWriter(bufio.NewReader(nc), bufio.NewWriter(nc))
	sendMIU, err := clientHandshake(rw, serviceName)
	if err != nil {
		nc.Close()
		if errors.Is(err, errRefused) {
			return nil, transport.ErrConnectionRefused
		}
		return nil, err
	}
	return newConn(nc, rw, sendMIU), nil
}
