package snep

import (
	"context"
	"encoding/binary"

	"github.com/nfctools/snep/transport"
)

// HeaderLen is the fixed size, in bytes, of every SNEP PDU header.
const HeaderLen = headerLen

// Header is the parsed fixed portion of a SNEP PDU, exported for use by
// the server package's per-connection loop and by callers that want to
// inspect a PDU without decoding its full information field.
type Header struct {
	Version byte
	Code    byte
	Length  uint32
}

// MajorVersion reports the major version nibble carried by the header.
func (h Header) MajorVersion() byte { return h.Version >> 4 }

// DecodeHeader parses the fixed 6-byte SNEP header from the front of b. It
// returns ErrTruncatedHeader if b holds fewer than HeaderLen bytes.
func DecodeHeader(b []byte) (Header, error) {
	h, err := decodeHeader(b)
	if err != nil {
		return Header{}, err
	}
	return Header{Version: h.version, Code: h.code, Length: h.length}, nil
}

// AssembleRequest completes a server-side request whose initial fragment
// has already been received, emitting CONTINUE (status 0x80) frames to
// request more as needed.
func AssembleRequest(ctx context.Context, sock transport.DataLinkSocket, initial []byte) ([]byte, error) {
	return receiveFragmented(ctx, sock, initial, serverContinueCode)
}

// SendResponse sends a server response PDU, splitting it across sendMIU-
// sized SDUs and awaiting the client's CONTINUE/REJECT control frame if it
// doesn't fit in one.
func SendResponse(ctx context.Context, sock transport.DataLinkSocket, pdu []byte, sendMIU int) error {
	return sendFragmented(ctx, sock, pdu, sendMIU, waitForClient)
}

// SplitGetRequest splits a GET request's information field into its
// acceptable-length prefix and the NDEF request octets that follow. A
// request shorter than 4 bytes yields a zero length and a nil remainder.
func SplitGetRequest(info []byte) (acceptableLength uint32, request []byte) {
	if len(info) < 4 {
		return 0, nil
	}
	return binary.BigEndian.Uint32(info[:4]), info[4:]
}
