package snep

import "fmt"

// Error is a typed SNEP protocol error carrying a response status code.
// Callback handlers raise it to have the server translate it into a
// status-only response (length 0); clients receive it when a peer answers
// with anything other than StatusSuccess, and as StatusExcessData when a GET
// response is longer than the acceptable length.
type Error struct {
	Status Status
}

// defaultMessages holds the fixed human-readable text for each non-success
// status code.
var defaultMessages = map[Status]string{
	StatusNotFound:           "resource not found",
	StatusExcessData:         "resource exceeds data size limit",
	StatusBadRequest:         "malformed request not understood",
	StatusNotImplemented:     "unsupported functionality requested",
	StatusUnsupportedVersion: "unsupported protocol version",
	StatusReject:             "request rejected",
}

func (e *Error) Error() string {
	if msg, ok := defaultMessages[e.Status]; ok {
		return fmt.Sprintf("snep: %s (status 0x%02x)", msg, byte(e.Status))
	}
	return fmt.Sprintf("snep: error status 0x%02x", byte(e.Status))
}

// NewError builds a typed SNEP error for the given status.
func NewError(status Status) *Error {
	return &Error{Status: status}
}
