package parser

import (
	"time"
)

// Port represents an established, byte-oriented connection to an AT-capable
// peripheral (cellular, Wi-Fi or Bluetooth module).
//
// A Port is assumed to be already connected and ready for use. It provides
// the low-level primitives required to send AT commands and receive response
// bytes. Typical implementations include serial ports, TCP connections to
// emulators, or in-memory fakes used for testing.
//
// The transport is half-duplex from the parser's viewpoint: the parser is the
// only reader and the only writer, and all calls happen on a single goroutine.
type Port interface {
	// Init prepares the port for AT traffic. It is called exactly once, by
	// New, with the parser's per-byte timeout. Implementations typically
	// discard any stale input buffered by the hardware.
	Init(timeout time.Duration) error

	// Get reads a single byte, blocking for at most timeout. It returns
	// ErrTimeout (possibly wrapped) when no byte arrives in time.
	Get(timeout time.Duration) (byte, error)

	// Put writes a single byte. Put is expected to be non-blocking or
	// bounded; it returns an error if the byte cannot be transmitted.
	Put(b byte) error

	// Readable reports whether at least one byte is pending without
	// blocking.
	Readable() bool
}
