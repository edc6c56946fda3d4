package snep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nfctools/snep/ndef"
	"github.com/nfctools/snep/transport"
)

// DefaultServiceName is the well-known SNEP service name a client connects
// to when the caller doesn't override it.
const DefaultServiceName = "urn:nfc:sn:snep"

// DefaultAcceptableLength is the response size a client is willing to
// accept when the caller doesn't specify one for GetOctets/GetRecords.
const DefaultAcceptableLength = 0x400

// defaultGetRequest is the information field of a GET request carrying a
// single empty NDEF record (D0 00 00): a placeholder any standard SNEP
// server accepts.
var defaultGetRequest = []byte{0xD0, 0x00, 0x00}

// Client drives the SNEP client state machine (GET/PUT) over a single
// data-link connection. The zero value is not usable; construct one with
// NewClient (an already-open socket) or NewClientFromDialer (Connect opens
// the socket itself) before issuing requests.
type Client struct {
	dialer  Dialer
	sock    transport.DataLinkSocket
	sendMIU int

	mu sync.Mutex
}

// NewClient wraps an already-open data-link socket (typically returned by
// dialing an LLCP data-link connection out of band) as a SNEP client.
func NewClient(sock transport.DataLinkSocket) *Client {
	return &Client{sock: sock, sendMIU: sock.SendMIU()}
}

// Dialer opens a data-link connection to a named SNEP service, mirroring
// nfc.llcp.Socket.connect. Concrete transports (llcpsim, a real LLCP
// binding) implement this.
type Dialer interface {
	Dial(ctx context.Context, serviceName string) (transport.DataLinkSocket, error)
}

// NewClientFromDialer builds a Client that opens its own data-link
// connection via dialer when Connect is called.
func NewClientFromDialer(dialer Dialer) *Client {
	return &Client{dialer: dialer}
}

// Connect opens a data-link connection to serviceName (DefaultServiceName
// if empty) when the Client was built with NewClientFromDialer, and records
// the negotiated send MIU. It returns false (not an error) when the peer
// refuses the connection.
func (c *Client) Connect(ctx context.Context, serviceName string) (bool, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if c.sock != nil {
		c.sendMIU = c.sock.SendMIU()
		return true, nil
	}
	if c.dialer == nil {
		return false, errors.New("snep: client has no socket and no dialer")
	}
	sock, err := c.dialer.Dial(ctx, serviceName)
	if err != nil {
		if errors.Is(err, transport.ErrConnectionRefused) {
			return false, nil
		}
		return false, fmt.Errorf("snep: connect: %w", err)
	}
	c.sock = sock
	c.sendMIU = sock.SendMIU()
	return true, nil
}

// Close releases the underlying socket. Close is idempotent and safe to
// call even if Connect was never (successfully) called.
func (c *Client) Close() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

// GetOctets performs a SNEP GET: request is the NDEF octets describing what
// the caller wants (defaultGetRequest if nil), acceptableLength bounds the
// response size the caller is willing to receive. On transport failure or
// timeout it returns (nil, nil) -- "transport broken", not a typed error --
// so a caller can tell a peer's explicit refusal apart from a dead link.
func (c *Client) GetOctets(ctx context.Context, request []byte, acceptableLength uint32) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if request == nil {
		request = defaultGetRequest
	}
	if acceptableLength == 0 {
		acceptableLength = DefaultAcceptableLength
	}
	pdu := EncodeGetRequest(acceptableLength, request)

	if err := sendFragmented(ctx, c.sock, pdu, c.sendMIU, waitForServer); err != nil {
		return nil, nil
	}

	if !c.sock.Poll(ctx, pollTimeout) {
		return nil, nil
	}
	first, err := c.sock.Recv(ctx)
	if err != nil || len(first) < headerLen {
		return nil, nil
	}
	h, err := decodeHeader(first)
	if err != nil {
		return nil, nil
	}
	if h.code != byte(StatusSuccess) {
		return nil, NewError(Status(h.code))
	}
	if h.length > acceptableLength {
		return nil, NewError(StatusExcessData)
	}

	info, err := receiveFragmented(ctx, c.sock, first, clientContinueCode)
	if err != nil {
		return nil, nil
	}
	return info, nil
}

// PutOctets performs a SNEP PUT. On transport failure it returns (false,
// nil); a peer-reported error is returned as a typed *Error.
func (c *Client) PutOctets(ctx context.Context, request []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pdu := EncodeRequest(OpPut, request)
	if err := sendFragmented(ctx, c.sock, pdu, c.sendMIU, waitForServer); err != nil {
		return false, nil
	}

	if !c.sock.Poll(ctx, pollTimeout) {
		return false, nil
	}
	resp, err := c.sock.Recv(ctx)
	if err != nil || len(resp) < headerLen {
		return false, nil
	}
	h, err := decodeHeader(resp)
	if err != nil {
		return false, nil
	}
	if h.code != byte(StatusSuccess) {
		return false, NewError(Status(h.code))
	}
	return true, nil
}

// GetRecords encodes records (or the default empty record when records is
// nil) to NDEF octets, performs a GET, and decodes the response back into
// records. It returns (nil, nil) when the transport failed, matching
// GetOctets.
func (c *Client) GetRecords(ctx context.Context, records []ndef.Record) ([]ndef.Record, error) {
	var request []byte
	if records != nil {
		encoded, err := ndef.EncodeMessage(records)
		if err != nil {
			return nil, fmt.Errorf("snep: encoding request records: %w", err)
		}
		request = encoded
	}
	octets, err := c.GetOctets(ctx, request, DefaultAcceptableLength)
	if err != nil {
		return nil, err
	}
	if octets == nil {
		return nil, nil
	}
	decoded, err := ndef.DecodeMessage(octets)
	if err != nil {
		return nil, fmt.Errorf("snep: decoding response records: %w", err)
	}
	return decoded, nil
}

// PutRecords encodes records to NDEF octets and performs a PUT.
func (c *Client) PutRecords(ctx context.Context, records []ndef.Record) (bool, error) {
	octets, err := ndef.EncodeMessage(records)
	if err != nil {
		return false, fmt.Errorf("snep: encoding records: %w", err)
	}
	return c.PutOctets(ctx, octets)
}

var _ io.Closer = (*Client)(nil)
