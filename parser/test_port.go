package parser

import (
	"bytes"
	"time"
)

// TestPort is a test helper that simulates an AT peripheral behind an
// in-memory Port. Reads pop from a queued input buffer and report ErrTimeout
// once it runs dry, which is exactly how a silent modem looks to the parser.
// Writes are captured and can be inspected with Sent.
//
// Exported for use in tests.
type TestPort struct {
	input     []byte
	sent      []byte
	responses map[string]string
	delim     string

	// InitTimeout records the timeout passed to Init.
	InitTimeout time.Duration

	putLimit    int
	putLimitSet bool
}

// NewTestPort creates a test port preloaded with input.
func NewTestPort(input string) *TestPort {
	return &TestPort{
		input:     []byte(input),
		responses: make(map[string]string),
		delim:     "\r\n",
	}
}

// Feed queues more input, as if the peripheral had sent it.
func (t *TestPort) Feed(data string) {
	t.input = append(t.input, data...)
}

// Respond registers a canned response that is queued as input as soon as the
// parser finishes writing cmd followed by the output delimiter. This turns
// the port into a minimal scripted emulator for request/response tests.
func (t *TestPort) Respond(cmd, response string) {
	t.responses[cmd+t.delim] = response
}

// SetPutLimit makes Put fail after n successful writes.
func (t *TestPort) SetPutLimit(n int) {
	t.putLimit = n
	t.putLimitSet = true
}

// Sent returns everything the parser has written so far.
func (t *TestPort) Sent() string {
	return string(t.sent)
}

func (t *TestPort) Init(timeout time.Duration) error {
	t.InitTimeout = timeout
	return nil
}

func (t *TestPort) Get(timeout time.Duration) (byte, error) {
	if len(t.input) == 0 {
		return 0, ErrTimeout
	}
	c := t.input[0]
	t.input = t.input[1:]
	return c, nil
}

func (t *TestPort) Put(b byte) error {
	if t.putLimitSet && len(t.sent) >= t.putLimit {
		return ErrPortClosed
	}
	t.sent = append(t.sent, b)
	for wire, response := range t.responses {
		if bytes.HasSuffix(t.sent, []byte(wire)) {
			t.Feed(response)
		}
	}
	return nil
}

func (t *TestPort) Readable() bool {
	return len(t.input) > 0
}

var _ Port = (*TestPort)(nil)
