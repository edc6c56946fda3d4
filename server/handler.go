package server

import (
	"context"

	"github.com/nfctools/snep"
	"github.com/nfctools/snep/ndef"
)

// Handler is the pluggable callback surface every accepted connection
// dispatches to: a raw-octet pair and a typed-record pair, so an
// application can plug in at whichever layer suits it.
type Handler interface {
	// GetOctets handles a raw GET request. acceptableLength bounds the
	// response; returning more is translated to EXCESS_DATA by the caller.
	GetOctets(ctx context.Context, request []byte, acceptableLength uint32) ([]byte, error)
	// PutOctets handles a raw PUT request.
	PutOctets(ctx context.Context, request []byte) error
	// GetRecords handles a typed GET request.
	GetRecords(ctx context.Context, records []ndef.Record) ([]ndef.Record, error)
	// PutRecords handles a typed PUT request.
	PutRecords(ctx context.Context, records []ndef.Record) error
}

// DefaultHandler supplies the fallback implementation for each callback.
// Embed it by value or pointer and set Self to the outer type once
// constructed:
//
//	type myHandler struct{ server.DefaultHandler }
//	func newMyHandler() *myHandler {
//	    h := &myHandler{}
//	    h.Self = h
//	    return h
//	}
//	func (h *myHandler) GetRecords(ctx context.Context, r []ndef.Record) ([]ndef.Record, error) { ... }
//
// Because the default GetOctets/PutOctets below call through Self rather
// than through DefaultHandler directly, overriding only GetRecords still
// routes GET requests through the embedder's GetRecords. Self left nil
// falls back to DefaultHandler's own methods.
type DefaultHandler struct {
	Self Handler
}

func (d *DefaultHandler) self() Handler {
	if d.Self != nil {
		return d.Self
	}
	return d
}

// GetOctets decodes request as NDEF records, calls Self.GetRecords, and
// re-encodes the result.
func (d *DefaultHandler) GetOctets(ctx context.Context, request []byte, acceptableLength uint32) ([]byte, error) {
	records, err := ndef.DecodeMessage(request)
	if err != nil {
		return nil, snep.NewError(snep.StatusBadRequest)
	}
	result, err := d.self().GetRecords(ctx, records)
	if err != nil {
		return nil, err
	}
	encoded, err := ndef.EncodeMessage(result)
	if err != nil {
		return nil, snep.NewError(snep.StatusBadRequest)
	}
	return encoded, nil
}

// PutOctets decodes request as NDEF records and calls Self.PutRecords.
func (d *DefaultHandler) PutOctets(ctx context.Context, request []byte) error {
	records, err := ndef.DecodeMessage(request)
	if err != nil {
		return snep.NewError(snep.StatusBadRequest)
	}
	return d.self().PutRecords(ctx, records)
}

// GetRecords defaults to NOT_IMPLEMENTED.
func (d *DefaultHandler) GetRecords(ctx context.Context, records []ndef.Record) ([]ndef.Record, error) {
	return nil, snep.NewError(snep.StatusNotImplemented)
}

// PutRecords defaults to success (a no-op).
func (d *DefaultHandler) PutRecords(ctx context.Context, records []ndef.Record) error {
	return nil
}

// NewDefaultHandler returns a Handler with every callback at its documented
// default (GET not implemented, PUT a no-op, octet variants routed through
// the record variants).
func NewDefaultHandler() Handler {
	h := &DefaultHandler{}
	h.Self = h
	return h
}

var _ Handler = (*DefaultHandler)(nil)
