// Package transporttest provides an in-memory transport.DataLinkSocket
// pair for tests, preserving message boundaries the way two connected LLCP
// sockets would without needing a real network connection -- net.Pipe's
// test convenience, but at SDU granularity rather than a raw byte stream.
package transporttest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nfctools/snep/transport"
)

// socket is one end of an in-memory data-link connection.
type socket struct {
	name    string
	sendMIU int
	out     chan []byte // frames this end sends, the peer reads

	mu      sync.Mutex
	peeked  []byte
	hasPeek bool
	in      chan []byte // frames this end reads, the peer sends
	closed  chan struct{}
	once    *sync.Once
}

// Pair returns two connected DataLinkSocket values: a.Send delivers to
// b.Recv and vice versa. sendMIUA/sendMIUB are the SendMIU each end
// reports (so tests can exercise fragmentation asymmetrically). Closing
// either end closes the shared connection for both.
func Pair(sendMIUA, sendMIUB int) (a, b transport.DataLinkSocket) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	sa := &socket{name: "a", sendMIU: sendMIUA, out: ab, in: ba, closed: closed, once: once}
	sb := &socket{name: "b", sendMIU: sendMIUB, out: ba, in: ab, closed: closed, once: once}
	return sa, sb
}

func (s *socket) Send(ctx context.Context, data []byte) error {
	if len(data) > s.sendMIU {
		return errors.New("transporttest: send exceeds MIU")
	}
	select {
	case s.out <- append([]byte(nil), data...):
		return nil
	case <-s.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *socket) Recv(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.hasPeek {
		frame := s.peeked
		s.peeked = nil
		s.hasPeek = false
		s.mu.Unlock()
		return frame, nil
	}
	s.mu.Unlock()

	select {
	case frame, ok := <-s.in:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-s.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *socket) Poll(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	if s.hasPeek {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame, ok := <-s.in:
		if !ok {
			return false
		}
		s.mu.Lock()
		s.peeked = frame
		s.hasPeek = true
		s.mu.Unlock()
		return true
	case <-timer.C:
		return false
	case <-s.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *socket) SendMIU() int { return s.sendMIU }

func (s *socket) RemoteAddr() string { return s.name }

func (s *socket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

var _ transport.DataLinkSocket = (*socket)(nil)
