package parser

import "errors"

var (
	// ErrTimeout is returned when the peripheral produces no byte within
	// the configured per-byte timeout.
	//
	// Callers should treat a timed out Recv as "peripheral unresponsive"
	// and drive their own retry or reset policy; the parser itself never
	// retries.
	ErrTimeout = errors.New("read timeout")

	// ErrAborted is returned by Recv when an out-of-band handler called
	// Abort on the parser while the receive was in flight.
	ErrAborted = errors.New("receive aborted")

	// ErrBusy is returned when Recv, Send or ProcessOOB is entered while
	// another of these operations is already running on the parser.
	//
	// This happens when an out-of-band handler tries to issue a command.
	// Handlers may use Read and Abort; everything else must wait until
	// the enclosing operation returns.
	ErrBusy = errors.New("parser busy")

	// ErrNoPort is returned when a Parser is constructed without a Port.
	ErrNoPort = errors.New("no port configured")

	// ErrPortClosed is returned by SerialPort operations after Close.
	ErrPortClosed = errors.New("serial port closed")
)
