package ndef_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nfctools/snep/ndef"
)

func TestEncodeMessageEmptyRecord(t *testing.T) {
	got, err := ndef.EncodeMessage([]ndef.Record{{TNF: ndef.TNFEmpty}})
	if err != nil {
		t.Fatalf("EncodeMessage() returned error: %v", err)
	}
	want := []byte{0xD0, 0x00, 0x00}
	if !cmp.Equal(got, want) {
		t.Errorf("EncodeMessage() = %#v, want %#v", got, want)
	}
}

func TestEncodeMessageTextRecord(t *testing.T) {
	got, err := ndef.EncodeMessage([]ndef.Record{ndef.NewTextRecord("en", "a")})
	if err != nil {
		t.Fatalf("EncodeMessage() returned error: %v", err)
	}
	want := []byte{0xD1, 0x01, 0x04, 0x54, 0x02, 0x65, 0x6e, 0x61}
	if !cmp.Equal(got, want) {
		t.Errorf("EncodeMessage() = %#v, want %#v", got, want)
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		desc string
		b    []byte
		want []ndef.Record
	}{
		{
			"empty record",
			[]byte{0xD0, 0x00, 0x00},
			[]ndef.Record{{TNF: ndef.TNFEmpty}},
		},
		{
			"text record",
			[]byte{0xD1, 0x01, 0x04, 0x54, 0x02, 0x65, 0x6e, 0x61},
			[]ndef.Record{{TNF: ndef.TNFWellKnown, Type: []byte("T"), Payload: []byte{0x02, 0x65, 0x6e, 0x61}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ndef.DecodeMessage(tc.b)
			if err != nil {
				t.Fatalf("DecodeMessage(%#v) returned error: %v", tc.b, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("DecodeMessage(%#v) mismatch (-want +got):\n%s", tc.b, diff)
			}
		})
	}
}

func TestDecodeMessageTruncated(t *testing.T) {
	_, err := ndef.DecodeMessage([]byte{0xD1, 0x01})
	if err == nil {
		t.Fatal("DecodeMessage() with truncated input: want error, got nil")
	}
}

func TestTextRoundTrip(t *testing.T) {
	r := ndef.NewTextRecord("en", "hello")
	lang, text, ok := r.Text()
	if !ok {
		t.Fatalf("Record.Text() on a text record returned ok=false")
	}
	if lang != "en" || text != "hello" {
		t.Errorf("Record.Text() = (%q, %q), want (%q, %q)", lang, text, "en", "hello")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	records := []ndef.Record{
		ndef.NewTextRecord("en", "first"),
		ndef.NewTextRecord("fr", "deuxieme"),
	}
	encoded, err := ndef.EncodeMessage(records)
	if err != nil {
		t.Fatalf("EncodeMessage() returned error: %v", err)
	}
	decoded, err := ndef.DecodeMessage(encoded)
	if err != nil {
		t.Fatalf("DecodeMessage() returned error: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("DecodeMessage() returned %d records, want %d", len(decoded), len(records))
	}
	for i := range records {
		_, wantText, _ := records[i].Text()
		_, gotText, _ := decoded[i].Text()
		if gotText != wantText {
			t.Errorf("record %d text = %q, want %q", i, gotText, wantText)
		}
	}
}
