package server

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/nfctools/snep"
	"github.com/nfctools/snep/internal/logger"
	"github.com/nfctools/snep/transport"
)

// connection drives the per-connection request/response loop: one
// goroutine, one socket, strictly serialized requests.
type connection struct {
	id      string
	sock    transport.DataLinkSocket
	handler Handler
	maxLen  uint32
	sendMIU int
}

func newConnection(sock transport.DataLinkSocket, handler Handler, maxAcceptableLength uint32) *connection {
	return &connection{
		id:      uuid.NewString(),
		sock:    sock,
		handler: handler,
		maxLen:  maxAcceptableLength,
		sendMIU: sock.SendMIU(),
	}
}

// serve runs the request/response loop until the peer closes the
// connection or a malformed first fragment is seen. It always closes the
// socket before returning.
func (c *connection) serve(ctx context.Context) {
	defer c.sock.Close()
	log := logger.With("conn", c.id, "peer", c.sock.RemoteAddr())
	log.Debug("connection accepted")

	for {
		if err := c.serveOneRequest(ctx, log); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				log.Debug("connection closed")
			} else {
				log.Debug("connection ended", "reason", err)
			}
			return
		}
	}
}

type debugLogger interface {
	Debug(msg string, args ...any)
}

// serveOneRequest receives one request (assembling it if fragmented),
// dispatches it to the handler, and sends the response. A returned error
// means the loop must stop (peer closed or malformed first fragment); any
// recoverable protocol condition is handled inline by writing a response
// and returning nil to continue the loop.
func (c *connection) serveOneRequest(ctx context.Context, log debugLogger) error {
	first, err := c.sock.Recv(ctx)
	if err != nil {
		return err // peer closed, or ctx done
	}
	if len(first) == 0 {
		return io.EOF
	}
	if len(first) < snep.HeaderLen {
		// Malformed client: header doesn't even fit in the first fragment,
		// so no response is sent.
		return errors.New("snep: fragment shorter than header")
	}

	h, err := snep.DecodeHeader(first)
	if err != nil {
		return err
	}
	if h.MajorVersion() > 1 {
		return c.respond(ctx, log, snep.StatusUnsupportedVersion, nil)
	}
	if h.Length > c.maxLen {
		return c.respond(ctx, log, snep.StatusReject, nil)
	}

	info, err := snep.AssembleRequest(ctx, c.sock, first)
	if err != nil {
		return err // peer closed mid-assembly
	}

	var status snep.Status
	var payload []byte
	switch {
	case h.Code == byte(snep.OpGet) && len(info) >= 4:
		status, payload = c.dispatchGet(ctx, info)
	case h.Code == byte(snep.OpPut):
		status, payload = c.dispatchPut(ctx, info)
	default:
		status, payload = snep.StatusBadRequest, nil
	}
	return c.respond(ctx, log, status, payload)
}

func (c *connection) dispatchGet(ctx context.Context, info []byte) (snep.Status, []byte) {
	acceptableLength, request := snep.SplitGetRequest(info)
	result, err := c.handler.GetOctets(ctx, request, acceptableLength)
	if err != nil {
		return statusFromError(err), nil
	}
	if uint32(len(result)) > acceptableLength {
		return snep.StatusExcessData, nil
	}
	return snep.StatusSuccess, result
}

func (c *connection) dispatchPut(ctx context.Context, info []byte) (snep.Status, []byte) {
	if err := c.handler.PutOctets(ctx, info); err != nil {
		return statusFromError(err), nil
	}
	return snep.StatusSuccess, nil
}

// statusFromError translates a callback-raised error to a response status:
// a *snep.Error carries its own status; anything else is a BAD_REQUEST.
func statusFromError(err error) snep.Status {
	var snepErr *snep.Error
	if errors.As(err, &snepErr) {
		return snepErr.Status
	}
	return snep.StatusBadRequest
}

// respond sends the response for the current request, fragmenting it if it
// exceeds the connection's send MIU. A REJECT (or anything unexpected) from
// the client mid-fragmentation silently stops sending further fragments but
// does not end the connection.
func (c *connection) respond(ctx context.Context, log debugLogger, status snep.Status, payload []byte) error {
	pdu := snep.EncodeResponse(status, payload)
	if err := snep.SendResponse(ctx, c.sock, pdu, c.sendMIU); err != nil {
		log.Debug("response fragmentation aborted", "reason", err)
	}
	return nil
}
