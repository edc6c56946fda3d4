// Package server implements the SNEP server acceptor and per-connection
// handler: bind a service name, accept inbound data-link connections, and
// dispatch each to a handler goroutine that drives the request/response
// loop against a pluggable Handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/nfctools/snep/internal/logger"
	"github.com/nfctools/snep/transport"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxAcceptableLength is the default cap on the length of an inbound
// request a server will accept before rejecting it outright.
const DefaultMaxAcceptableLength uint32 = 1_000_000

// DefaultServiceName is the well-known SNEP service name a server binds to
// when the caller doesn't override it.
const DefaultServiceName = "urn:nfc:sn:snep"

// DefaultRecvMIU and DefaultRecvBuf are the listening-socket defaults a
// fresh server offers inbound connections.
const (
	DefaultRecvMIU = 1984
	DefaultRecvBuf = 15
)

// Server accepts SNEP client connections and dispatches each to its own
// goroutine. The zero value is not usable; construct one with New.
type Server struct {
	listener transport.DataLinkListener
	handler  Handler

	serviceName         string
	maxAcceptableLength uint32
	recvMIU             int
	recvBuf             int
	backlog             int
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithHandler overrides the default no-op/not-implemented Handler.
func WithHandler(h Handler) Option {
	return func(s *Server) { s.handler = h }
}

// WithServiceName overrides DefaultServiceName.
func WithServiceName(name string) Option {
	return func(s *Server) { s.serviceName = name }
}

// WithMaxAcceptableLength overrides DefaultMaxAcceptableLength.
func WithMaxAcceptableLength(n uint32) Option {
	return func(s *Server) { s.maxAcceptableLength = n }
}

// WithRecvMIU overrides DefaultRecvMIU.
func WithRecvMIU(miu int) Option {
	return func(s *Server) { s.recvMIU = miu }
}

// WithRecvBuf overrides DefaultRecvBuf.
func WithRecvBuf(buf int) Option {
	return func(s *Server) { s.recvBuf = buf }
}

// WithBacklog overrides the default listen backlog of 2.
func WithBacklog(n int) Option {
	return func(s *Server) { s.backlog = n }
}

// New builds a Server bound to listener. Start must be called to actually
// bind/listen/accept.
func New(listener transport.DataLinkListener, opts ...Option) *Server {
	s := &Server{
		listener:            listener,
		handler:             NewDefaultHandler(),
		serviceName:         DefaultServiceName,
		maxAcceptableLength: DefaultMaxAcceptableLength,
		recvMIU:             DefaultRecvMIU,
		recvBuf:             DefaultRecvBuf,
		backlog:             2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start configures the listening socket, binds and listens, then accepts
// connections until the listener fails or ctx is cancelled, spawning one
// handler goroutine per accepted connection. It returns only after the
// accept loop and every spawned handler goroutine have exited.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.listener.SetRecvMIU(s.recvMIU); err != nil {
		return fmt.Errorf("snep/server: setting recv MIU: %w", err)
	}
	if _, err := s.listener.SetRecvBuf(s.recvBuf); err != nil {
		return fmt.Errorf("snep/server: setting recv buf: %w", err)
	}
	if err := s.listener.Bind(s.serviceName); err != nil {
		return fmt.Errorf("snep/server: binding %q: %w", s.serviceName, err)
	}
	if err := s.listener.Listen(s.backlog); err != nil {
		return fmt.Errorf("snep/server: listening: %w", err)
	}
	defer s.listener.Close()

	logger.Info("snep server listening", "service", s.listener.Addr())

	g, gctx := errgroup.WithContext(ctx)
	for {
		sock, err := s.listener.Accept(gctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debug("accept loop stopping: context done")
			} else if isExpectedTeardown(err) {
				logger.Debug("accept loop stopping: link torn down", "reason", err)
			} else {
				logger.Error("accept loop stopping: unexpected error", "reason", err)
			}
			break
		}
		conn := newConnection(sock, s.handler, s.maxAcceptableLength)
		g.Go(func() error {
			conn.serve(gctx)
			return nil
		})
	}
	return g.Wait()
}

// isExpectedTeardown reports whether err is the kind of failure expected
// when the data-link connection (or the whole LLCP link) is torn down, so
// it can be logged at a lower severity than a genuinely unexpected accept
// error.
func isExpectedTeardown(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
