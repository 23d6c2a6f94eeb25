// Package parser implements a host-side AT command parser for modem-style
// peripherals attached over a byte-oriented transport.
//
// The parser is built around a format-directed line matcher: Send formats and
// transmits a command, Recv consumes response bytes and matches them against a
// printf/scanf-style template, extracting typed fields. Unsolicited
// notifications ("out-of-band" data) registered with AddOOB are recognized and
// dispatched at any byte boundary, both while matching a response and, via
// ProcessOOB, between commands.
//
// A Parser is single-owner and single-threaded: all operations run on the
// caller's goroutine and block only inside the transport's Get calls. Callers
// that share a parser across goroutines must serialize access themselves.
package parser

import (
	"fmt"
	"io"
	"time"
)

// oobEntry is one registered out-of-band prefix and its handler.
type oobEntry struct {
	prefix []byte
	fn     func()
}

// Parser matches AT command responses and dispatches out-of-band
// notifications. Create one with New.
type Parser struct {
	// port is the physical connection to the peripheral
	port Port
	// oobs holds the registered out-of-band prefixes, newest first
	oobs []oobEntry
	// unprocessed receives complete lines the pump could not match
	unprocessed func(line []byte)
	// timeout is the per-byte read timeout
	timeout time.Duration
	// outDelim terminates every transmitted command
	outDelim []byte
	// inDelim terminates every received line
	inDelim []byte
	// buf is the scratch buffer reused by every operation
	buf []byte
	// probe is the rewritten validation format for the current line
	probe []byte
	// busy guards against reentrant operations from handlers
	busy bool
	// aborted is set by Abort during an out-of-band handler
	aborted bool

	dbg       bool
	dbgWriter io.Writer
}

// New creates a Parser on top of port and initializes the transport.
func New(port Port, cfg Config) (*Parser, error) {
	if port == nil {
		return nil, ErrNoPort
	}
	cfg.setDefaults()

	p := &Parser{
		port:      port,
		timeout:   cfg.Timeout,
		outDelim:  []byte(cfg.OutputDelimiter),
		inDelim:   []byte(cfg.InputDelimiter),
		buf:       make([]byte, 0, cfg.BufferSize),
		probe:     make([]byte, 0, cfg.BufferSize),
		dbg:       cfg.Debug,
		dbgWriter: cfg.DebugWriter,
	}
	if err := port.Init(cfg.Timeout); err != nil {
		return nil, fmt.Errorf("initialize port: %w", err)
	}
	return p, nil
}

// SetTimeout changes the per-byte read timeout.
func (p *Parser) SetTimeout(d time.Duration) {
	p.timeout = d
}

// Debug switches wire-level tracing on or off.
func (p *Parser) Debug(on bool) {
	p.dbg = on
}

// AddOOB registers a handler for an out-of-band prefix. The handler fires as
// soon as the bytes of a line equal prefix, during Recv as well as during
// ProcessOOB. Registrations are prepended, so when prefixes collide the
// newest registration wins. There is no removal.
//
// Handlers run synchronously on the caller's stack. A handler must not call
// Send, Recv or ProcessOOB (they fail with ErrBusy); it may use Read to drain
// the remainder of the notification and Abort to fail an in-flight Recv.
func (p *Parser) AddOOB(prefix string, fn func()) {
	e := oobEntry{prefix: []byte(prefix), fn: fn}
	p.oobs = append([]oobEntry{e}, p.oobs...)
}

// SetUnprocessedFunc installs a sink for complete lines that ProcessOOB
// drained without matching any registered prefix. A nil fn removes the sink.
// The line is only valid for the duration of the call.
func (p *Parser) SetUnprocessedFunc(fn func(line []byte)) {
	p.unprocessed = fn
}

// Abort makes the in-flight Recv fail with ErrAborted. It is intended to be
// called from inside an out-of-band handler; outside of one it has no effect
// beyond failing the next handler-interrupted receive.
func (p *Parser) Abort() {
	p.aborted = true
}

// enter marks the parser busy for the duration of a top-level operation.
func (p *Parser) enter() error {
	if p.busy {
		return ErrBusy
	}
	p.busy = true
	return nil
}

func (p *Parser) leave() {
	p.busy = false
}

func (p *Parser) tracef(format string, args ...any) {
	if p.dbg {
		fmt.Fprintf(p.dbgWriter, format, args...)
	}
}
