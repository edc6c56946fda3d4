package server

import (
	"context"
	"errors"
	"testing"

	"github.com/nfctools/snep"
	"github.com/nfctools/snep/ndef"
)

func TestDefaultHandlerGetRecordsNotImplemented(t *testing.T) {
	h := NewDefaultHandler()
	_, err := h.GetRecords(context.Background(), nil)
	var snepErr *snep.Error
	if !errors.As(err, &snepErr) || snepErr.Status != snep.StatusNotImplemented {
		t.Errorf("GetRecords() error = %v, want *snep.Error{StatusNotImplemented}", err)
	}
}

func TestDefaultHandlerPutRecordsNoop(t *testing.T) {
	h := NewDefaultHandler()
	if err := h.PutRecords(context.Background(), []ndef.Record{ndef.NewTextRecord("en", "x")}); err != nil {
		t.Errorf("PutRecords() returned error: %v, want nil", err)
	}
}

// echoHandler overrides only GetRecords/PutRecords, exercising DefaultHandler's
// Self-dispatch: GetOctets/PutOctets must still route through these overrides
// rather than DefaultHandler's own GetRecords/PutRecords.
type echoHandler struct {
	DefaultHandler
	received []ndef.Record
}

func newEchoHandler() *echoHandler {
	h := &echoHandler{}
	h.Self = h
	return h
}

func (h *echoHandler) GetRecords(ctx context.Context, records []ndef.Record) ([]ndef.Record, error) {
	return []ndef.Record{ndef.NewTextRecord("en", "echo")}, nil
}

func (h *echoHandler) PutRecords(ctx context.Context, records []ndef.Record) error {
	h.received = records
	return nil
}

func TestDefaultHandlerSelfDispatchGetOctets(t *testing.T) {
	h := newEchoHandler()
	octets, err := h.GetOctets(context.Background(), []byte{0xD0, 0x00, 0x00}, 0x400)
	if err != nil {
		t.Fatalf("GetOctets() returned error: %v", err)
	}
	records, err := ndef.DecodeMessage(octets)
	if err != nil {
		t.Fatalf("decoding GetOctets() result: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	_, text, ok := records[0].Text()
	if !ok || text != "echo" {
		t.Errorf("record text = %q, ok=%v, want %q", text, ok, "echo")
	}
}

func TestDefaultHandlerSelfDispatchPutOctets(t *testing.T) {
	h := newEchoHandler()
	encoded, err := ndef.EncodeMessage([]ndef.Record{ndef.NewTextRecord("en", "put")})
	if err != nil {
		t.Fatalf("EncodeMessage() returned error: %v", err)
	}
	if err := h.PutOctets(context.Background(), encoded); err != nil {
		t.Fatalf("PutOctets() returned error: %v", err)
	}
	if len(h.received) != 1 {
		t.Fatalf("handler received %d records, want 1", len(h.received))
	}
	_, text, _ := h.received[0].Text()
	if text != "put" {
		t.Errorf("received text = %q, want %q", text, "put")
	}
}

func TestDefaultHandlerGetOctetsBadRequest(t *testing.T) {
	h := NewDefaultHandler()
	_, err := h.GetOctets(context.Background(), []byte{0xFF}, 0x400)
	var snepErr *snep.Error
	if !errors.As(err, &snepErr) || snepErr.Status != snep.StatusBadRequest {
		t.Errorf("GetOctets() with malformed NDEF error = %v, want *snep.Error{StatusBadRequest}", err)
	}
}
