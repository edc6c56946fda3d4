// Package snep implements the client and server endpoints of the Simple NDEF
// Exchange Protocol (SNEP), the request/response protocol NFC Forum devices
// use to exchange NDEF messages over an LLCP data-link connection.
//
// This package holds the wire codec, the fragmentation/continuation engine
// shared by both roles, and the Client state machine. The server acceptor,
// per-connection handler, and callback surface live in the sibling snep/server
// package; the LLCP data-link socket is consumed as the transport.DataLinkSocket
// and transport.DataLinkListener interfaces so this package never depends on a
// concrete NFC stack.
//
// SNEP itself does not route NDEF content, persist state across connections,
// negotiate protocol versions beyond rejecting unsupported majors, or
// multiplex multiple exchanges over one data-link connection.
package snep
