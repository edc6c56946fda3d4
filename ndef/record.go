// Package ndef is a minimal, pure encoder/decoder for NDEF (NFC Data
// Exchange Format) short records, per the NFC Forum NDEF technical
// specification. SNEP treats NDEF content as opaque octets; this package is
// the one concrete codec SNEP's client/server callback surface exchanges
// records through, so the module has something runnable on both sides of
// the "NDEF record semantics are a named external collaborator" boundary.
//
// Records are produced without chunking: in short form when the payload is
// under 256 bytes, in normal (4-byte length) form otherwise. Decoding accepts
// both short and normal-length records; chunked records are not reassembled.
package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TNF is the Type Name Format field of a record header: it says how to
// interpret Record.Type.
type TNF byte

// Standard TNF values.
const (
	TNFEmpty        TNF = 0x00
	TNFWellKnown    TNF = 0x01
	TNFMIMEMedia    TNF = 0x02
	TNFAbsoluteURI  TNF = 0x03
	TNFExternalType TNF = 0x04
	TNFUnknown      TNF = 0x05
	TNFUnchanged    TNF = 0x06
)

// header flag bits, per the NDEF record layout.
const (
	flagMB byte = 1 << 7 // message begin
	flagME byte = 1 << 6 // message end
	flagCF byte = 1 << 5 // chunk flag
	flagSR byte = 1 << 4 // short record
	flagIL byte = 1 << 3 // ID length present
)

// Record is a single NDEF record: a TNF-tagged type, an optional ID, and an
// opaque payload.
type Record struct {
	TNF     TNF
	Type    []byte
	ID      []byte
	Payload []byte
}

// ErrTruncated is returned by DecodeMessage when fewer bytes are present
// than a record header declares.
var ErrTruncated = errors.New("ndef: truncated record")

// NewTextRecord builds a well-known "T" (RFC-2822 text) record: a single
// status byte (UTF-8, language-code length), the IANA language code, then
// the text itself.
func NewTextRecord(lang, text string) Record {
	if lang == "" {
		lang = "en"
	}
	payload := make([]byte, 0, 1+len(lang)+len(text))
	payload = append(payload, byte(len(lang)&0x3F))
	payload = append(payload, []byte(lang)...)
	payload = append(payload, []byte(text)...)
	return Record{TNF: TNFWellKnown, Type: []byte("T"), Payload: payload}
}

// Text reports whether r is a well-known text record and, if so, its
// decoded language code and text.
func (r Record) Text() (lang, text string, ok bool) {
	if r.TNF != TNFWellKnown || string(r.Type) != "T" || len(r.Payload) == 0 {
		return "", "", false
	}
	status := r.Payload[0]
	langLen := int(status & 0x3F)
	if 1+langLen > len(r.Payload) {
		return "", "", false
	}
	return string(r.Payload[1 : 1+langLen]), string(r.Payload[1+langLen:]), true
}

// EncodeMessage serializes records as a sequence of NDEF records, setting
// MB on the first record and ME on the last (an empty message is a single
// zero-length span: EncodeMessage(nil) returns nil).
func EncodeMessage(records []Record) ([]byte, error) {
	var out []byte
	for i, r := range records {
		enc, err := encodeRecord(r, i == 0, i == len(records)-1)
		if err != nil {
			return nil, fmt.Errorf("ndef: encoding record %d: %w", i, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeRecord(r Record, first, last bool) ([]byte, error) {
	if len(r.Type) > 0xFF {
		return nil, fmt.Errorf("type field too long: %d bytes", len(r.Type))
	}
	if len(r.ID) > 0xFF {
		return nil, fmt.Errorf("ID field too long: %d bytes", len(r.ID))
	}

	flags := byte(r.TNF) & 0x07
	if first {
		flags |= flagMB
	}
	if last {
		flags |= flagME
	}
	if len(r.ID) > 0 {
		flags |= flagIL
	}

	short := len(r.Payload) < 0x100
	if short {
		flags |= flagSR
	}

	b := []byte{flags, byte(len(r.Type))}
	if short {
		b = append(b, byte(len(r.Payload)))
	} else {
		lenField := make([]byte, 4)
		binary.BigEndian.PutUint32(lenField, uint32(len(r.Payload)))
		b = append(b, lenField...)
	}
	if len(r.ID) > 0 {
		b = append(b, byte(len(r.ID)))
	}
	b = append(b, r.Type...)
	b = append(b, r.ID...)
	b = append(b, r.Payload...)
	return b, nil
}

// DecodeMessage parses a sequence of NDEF records from b. It does not
// require well-formed MB/ME flags; it simply decodes records back to back
// until b is consumed.
func DecodeMessage(b []byte) ([]Record, error) {
	var records []Record
	for len(b) > 0 {
		r, n, err := decodeRecord(b)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
		b = b[n:]
	}
	return records, nil
}

func decodeRecord(b []byte) (Record, int, error) {
	if len(b) < 2 {
		return Record{}, 0, fmt.Errorf("%w: header needs 2 bytes, got %d", ErrTruncated, len(b))
	}
	flags := b[0]
	typeLen := int(b[1])
	off := 2

	var payloadLen int
	if flags&flagSR != 0 {
		if len(b) < off+1 {
			return Record{}, 0, fmt.Errorf("%w: short-record length field", ErrTruncated)
		}
		payloadLen = int(b[off])
		off++
	} else {
		if len(b) < off+4 {
			return Record{}, 0, fmt.Errorf("%w: normal-record length field", ErrTruncated)
		}
		payloadLen = int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
	}

	var idLen int
	if flags&flagIL != 0 {
		if len(b) < off+1 {
			return Record{}, 0, fmt.Errorf("%w: ID length field", ErrTruncated)
		}
		idLen = int(b[off])
		off++
	}

	need := off + typeLen + idLen + payloadLen
	if len(b) < need {
		return Record{}, 0, fmt.Errorf("%w: record body needs %d bytes, got %d", ErrTruncated, need, len(b))
	}

	r := Record{TNF: TNF(flags & 0x07)}
	r.Type = append([]byte(nil), b[off:off+typeLen]...)
	off += typeLen
	if idLen > 0 {
		r.ID = append([]byte(nil), b[off:off+idLen]...)
		off += idLen
	}
	r.Payload = append([]byte(nil), b[off:off+payloadLen]...)
	off += payloadLen
	return r, off, nil
}
