package server

import (
	"bytes"
	"context"
	"testing"

	"github.com/nfctools/snep"
	"github.com/nfctools/snep/transport/transporttest"
)

type stubHandler struct {
	DefaultHandler
	getResult []byte
	getErr    error
	putErr    error
	gotPut    []byte
}

func newStubHandler() *stubHandler {
	h := &stubHandler{}
	h.Self = h
	return h
}

func (h *stubHandler) GetOctets(ctx context.Context, request []byte, acceptableLength uint32) ([]byte, error) {
	if h.getErr != nil {
		return nil, h.getErr
	}
	return h.getResult, nil
}

func (h *stubHandler) PutOctets(ctx context.Context, request []byte) error {
	h.gotPut = request
	return h.putErr
}

func TestServeOneRequestGet(t *testing.T) {
	a, b := transporttest.Pair(1024, 1024)
	defer a.Close()
	defer b.Close()

	handler := newStubHandler()
	handler.getResult = []byte("answer")
	conn := newConnection(b, handler, 1_000_000)

	ctx := context.Background()
	pdu := snep.EncodeGetRequest(0x400, []byte{0xD0, 0x00, 0x00})
	if err := a.Send(ctx, pdu); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if err := conn.serveOneRequest(ctx, noopLog{}); err != nil {
		t.Fatalf("serveOneRequest() returned error: %v", err)
	}

	resp, err := a.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv() returned error: %v", err)
	}
	h, err := snep.DecodeHeader(resp)
	if err != nil {
		t.Fatalf("DecodeHeader() returned error: %v", err)
	}
	if h.Code != byte(snep.StatusSuccess) {
		t.Errorf("response code = 0x%02x, want StatusSuccess", h.Code)
	}
	if !bytes.Equal(resp[snep.HeaderLen:], []byte("answer")) {
		t.Errorf("response info = %#v, want %#v", resp[snep.HeaderLen:], []byte("answer"))
	}
}

func TestServeOneRequestPut(t *testing.T) {
	a, b := transporttest.Pair(1024, 1024)
	defer a.Close()
	defer b.Close()

	handler := newStubHandler()
	conn := newConnection(b, handler, 1_000_000)

	ctx := context.Background()
	pdu := snep.EncodeRequest(snep.OpPut, []byte("payload"))
	if err := a.Send(ctx, pdu); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if err := conn.serveOneRequest(ctx, noopLog{}); err != nil {
		t.Fatalf("serveOneRequest() returned error: %v", err)
	}

	if !bytes.Equal(handler.gotPut, []byte("payload")) {
		t.Errorf("handler received %#v, want %#v", handler.gotPut, []byte("payload"))
	}

	resp, err := a.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv() returned error: %v", err)
	}
	h, err := snep.DecodeHeader(resp)
	if err != nil {
		t.Fatalf("DecodeHeader() returned error: %v", err)
	}
	if h.Code != byte(snep.StatusSuccess) {
		t.Errorf("response code = 0x%02x, want StatusSuccess", h.Code)
	}
}

func TestServeOneRequestUnsupportedVersion(t *testing.T) {
	a, b := transporttest.Pair(1024, 1024)
	defer a.Close()
	defer b.Close()

	conn := newConnection(b, newStubHandler(), 1_000_000)

	ctx := context.Background()
	pdu := snep.EncodeRequest(snep.OpGet, nil)
	pdu[0] = 0x20 // major version 2
	if err := a.Send(ctx, pdu); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if err := conn.serveOneRequest(ctx, noopLog{}); err != nil {
		t.Fatalf("serveOneRequest() returned error: %v", err)
	}

	resp, err := a.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv() returned error: %v", err)
	}
	h, err := snep.DecodeHeader(resp)
	if err != nil {
		t.Fatalf("DecodeHeader() returned error: %v", err)
	}
	if h.Code != byte(snep.StatusUnsupportedVersion) {
		t.Errorf("response code = 0x%02x, want StatusUnsupportedVersion", h.Code)
	}
}

func TestServeOneRequestExceedsMaxAcceptableLength(t *testing.T) {
	a, b := transporttest.Pair(1024, 1024)
	defer a.Close()
	defer b.Close()

	conn := newConnection(b, newStubHandler(), 10)

	ctx := context.Background()
	pdu := snep.EncodeRequest(snep.OpPut, bytes.Repeat([]byte{1}, 100))
	if err := a.Send(ctx, pdu); err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}

	if err := conn.serveOneRequest(ctx, noopLog{}); err != nil {
		t.Fatalf("serveOneRequest() returned error: %v", err)
	}

	resp, err := a.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv() returned error: %v", err)
	}
	h, err := snep.DecodeHeader(resp)
	if err != nil {
		t.Fatalf("DecodeHeader() returned error: %v", err)
	}
	if h.Code != byte(snep.StatusReject) {
		t.Errorf("response code = 0x%02x, want StatusReject", h.Code)
	}
}

func TestServeOneRequestPeerClosed(t *testing.T) {
	a, b := transporttest.Pair(1024, 1024)
	defer b.Close()
	a.Close()

	conn := newConnection(b, newStubHandler(), 1_000_000)
	if err := conn.serveOneRequest(context.Background(), noopLog{}); err == nil {
		t.Fatal("serveOneRequest() on a closed peer: want error, got nil")
	}
}

func TestStatusFromErrorDefaultsBadRequest(t *testing.T) {
	if got := statusFromError(context.DeadlineExceeded); got != snep.StatusBadRequest {
		t.Errorf("statusFromError(generic error) = 0x%02x, want StatusBadRequest", got)
	}
	if got := statusFromError(snep.NewError(snep.StatusNotFound)); got != snep.StatusNotFound {
		t.Errorf("statusFromError(*snep.Error) = 0x%02x, want StatusNotFound", got)
	}
}

type noopLog struct{}

func (noopLog) Debug(msg string, args ...any) {}
