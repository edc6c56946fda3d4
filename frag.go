package snep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nfctools/snep/transport"
)

// pollTimeout bounds how long either side waits for a CONTINUE/REJECT
// control frame before giving up on a fragmented transfer.
const pollTimeout = 1 * time.Second

// sideCodes names the control-frame opcode/status pair ONE side emits to
// tell the other "continue" or "reject" a fragmented transfer. The request
// path signals with opcodes (CONTINUE=0x00, REJECT=0x7F); the response path
// signals with statuses (CONTINUE=0x80, REJECT=0xFF). Both directions run
// identical byte-shuffling logic; only these codes differ.
type sideCodes struct {
	continueCode byte
	rejectCode   byte
}

var (
	// waitForServer is what a client sending a (possibly oversized) request
	// watches for: the server's continuation/rejection status.
	waitForServer = sideCodes{continueCode: serverContinueCode, rejectCode: serverRejectCode}
	// waitForClient is what a server sending a (possibly oversized) response
	// watches for: the client's continuation/rejection opcode.
	waitForClient = sideCodes{continueCode: clientContinueCode, rejectCode: clientRejectCode}
)

// errRejected indicates the peer sent a REJECT control frame (or anything
// else unexpected) instead of CONTINUE while a fragmented send was underway.
// sendFragmented reports this by returning a non-nil error; callers that
// treat rejection as "abort silently" must not translate it into a response
// of their own.
var errRejected = fmt.Errorf("snep: peer rejected fragmented transfer")

// sendFragmented writes message to sock, splitting it across multiple SDUs
// of at most sendMIU bytes when it doesn't fit in one. awaited identifies
// the control codes the PEER uses to continue or reject the remainder.
func sendFragmented(ctx context.Context, sock transport.DataLinkSocket, message []byte, sendMIU int, awaited sideCodes) error {
	if len(message) <= sendMIU {
		return sock.Send(ctx, message)
	}
	if err := sock.Send(ctx, message[:sendMIU]); err != nil {
		return fmt.Errorf("snep: sending first fragment: %w", err)
	}

	if !sock.Poll(ctx, pollTimeout) {
		return fmt.Errorf("snep: %w: no continuation signal received", errRejected)
	}
	signal, err := sock.Recv(ctx)
	if err != nil {
		return fmt.Errorf("snep: reading continuation signal: %w", err)
	}
	if !isControlFrame(signal, awaited.continueCode) {
		return fmt.Errorf("snep: %w", errRejected)
	}

	for remaining := message[sendMIU:]; len(remaining) > 0; {
		n := sendMIU
		if n > len(remaining) {
			n = len(remaining)
		}
		if err := sock.Send(ctx, remaining[:n]); err != nil {
			return fmt.Errorf("snep: sending fragment: %w", err)
		}
		remaining = remaining[n:]
	}
	return nil
}

// receiveFragmented assembles a complete PDU given its already-received
// initial fragment, emitting a CONTINUE control frame coded ownContinueCode
// (the code THIS side uses to ask the peer for more -- clientContinueCode
// for a client assembling a response, serverContinueCode for a server
// assembling a request) and reading further fragments from sock until
// length bytes of information have been gathered.
func receiveFragmented(ctx context.Context, sock transport.DataLinkSocket, initial []byte, ownContinueCode byte) ([]byte, error) {
	h, err := decodeHeader(initial)
	if err != nil {
		return nil, err
	}
	info := append([]byte(nil), initial[headerLen:]...)
	if uint32(len(info)) >= h.length {
		return info[:h.length], nil
	}

	if err := sock.Send(ctx, controlFrame(ownContinueCode)); err != nil {
		return nil, fmt.Errorf("snep: sending continue signal: %w", err)
	}
	for uint32(len(info)) < h.length {
		fragment, err := sock.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("snep: peer closed mid-assembly: %w", err)
		}
		if err != nil {
			return nil, fmt.Errorf("snep: receiving fragment: %w", err)
		}
		info = append(info, fragment...)
	}
	return info[:h.length], nil
}
