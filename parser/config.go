package parser

import (
	"io"
	"os"
	"time"
)

// Config contains the parser configuration settings.
type Config struct {
	// OutputDelimiter terminates every command on the wire ("\r" or "\r\n").
	OutputDelimiter string
	// InputDelimiter terminates every response line from the peripheral.
	InputDelimiter string
	// Timeout is the per-byte read timeout.
	Timeout time.Duration
	// BufferSize is the capacity of the scratch buffer shared by every
	// parser operation. Response lines and out-of-band accumulations
	// longer than this are discarded.
	BufferSize int
	// Debug enables wire-level tracing.
	Debug bool
	// DebugWriter receives the trace output. Defaults to os.Stdout.
	DebugWriter io.Writer
}

func (c *Config) setDefaults() {
	if c.OutputDelimiter == "" {
		c.OutputDelimiter = "\r\n"
	}
	if c.InputDelimiter == "" {
		c.InputDelimiter = "\r\n"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 2048
	}
	if c.DebugWriter == nil {
		c.DebugWriter = os.Stdout
	}
}
