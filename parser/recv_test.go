package parser_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"i4.energy/across/atgw/parser"
)

func newTestParser(t *testing.T, input string, cfg parser.Config) (*parser.Parser, *parser.TestPort) {
	t.Helper()
	port := parser.NewTestPort(input)
	p, err := parser.New(port, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, port
}

func TestRecvSimpleMatch(t *testing.T) {
	p, _ := newTestParser(t, "OK\r\n", parser.Config{})

	if err := p.Recv("OK\r\n"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecvTypedExtraction(t *testing.T) {
	p, _ := newTestParser(t, "+CSQ: 17,99\r\n", parser.Config{})

	var rssi, ber int
	if err := p.Recv("+CSQ: %d,%d\r\n", &rssi, &ber); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rssi != 17 || ber != 99 {
		t.Errorf("expected (17, 99), got (%d, %d)", rssi, ber)
	}
}

func TestRecvEmptyFieldAfterColon(t *testing.T) {
	// "cmd:%*s\r\n" cannot match "cmd:\r\n" on its own because %s needs at
	// least one byte; the synthetic filler makes the sentinel reachable.
	p, _ := newTestParser(t, "cmd:\r\n", parser.Config{})

	if err := p.Recv("cmd:%*s\r\n"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecvOOBInterleaving(t *testing.T) {
	p, _ := newTestParser(t, "+RING\r\nOK\r\n", parser.Config{})

	calls := 0
	p.AddOOB("+RING\r\n", func() { calls++ })

	if err := p.Recv("OK\r\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected handler called once, got %d", calls)
	}
}

func TestRecvTimeout(t *testing.T) {
	p, _ := newTestParser(t, "", parser.Config{})

	v := 42
	err := p.Recv("+X: %d\r\n", &v)
	if !errors.Is(err, parser.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if v != 42 {
		t.Errorf("slot modified on failure: %d", v)
	}
}

func TestRecvMultiLineTemplate(t *testing.T) {
	p, _ := newTestParser(t, "+CMGS: 42\r\nOK\r\n", parser.Config{})

	var ref int
	if err := p.Recv("+CMGS: %d\r\nOK\r\n", &ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != 42 {
		t.Errorf("expected 42, got %d", ref)
	}
}

func TestRecvResyncsPastJunk(t *testing.T) {
	p, _ := newTestParser(t, "garbage\r\nmore garbage\r\nOK\r\n", parser.Config{})

	if err := p.Recv("OK\r\n"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecvWholeLineString(t *testing.T) {
	// The trailing \n defers validation until the delimiter, so %s takes
	// the whole word instead of matching on its first byte.
	p, _ := newTestParser(t, "+IPD: hello\r\n", parser.Config{})

	var s string
	if err := p.Recv("+IPD: %s\r\n", &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "hello" {
		t.Errorf("expected %q, got %q", "hello", s)
	}
}

func TestRecvSuppressedConversion(t *testing.T) {
	p, _ := newTestParser(t, "+X: 1,2\r\n", parser.Config{})

	var v int
	if err := p.Recv("+X: %*d,%d\r\n", &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestRecvLiteralPercent(t *testing.T) {
	p, _ := newTestParser(t, "charge: 100%\r\n", parser.Config{})

	if err := p.Recv("charge: 100%%\r\n"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecvClassWithNewlineIsNotALineBoundary(t *testing.T) {
	// The \n inside %[^\n] is part of the class, so validation is not
	// deferred: the template matches as soon as a single byte satisfies the
	// class, without waiting for a delimiter.
	p, _ := newTestParser(t, "data", parser.Config{})

	var s string
	if err := p.Recv("%[^\n]", &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "d" {
		t.Errorf("expected %q, got %q", "d", s)
	}
}

func TestRecvOOBOnlyAtLineStart(t *testing.T) {
	p, _ := newTestParser(t, "xx+RING\r\nOK\r\n", parser.Config{})

	calls := 0
	p.AddOOB("+RING\r\n", func() { calls++ })

	if err := p.Recv("OK\r\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("handler fired mid-line: %d calls", calls)
	}
}

func TestRecvAbortFromHandler(t *testing.T) {
	p, _ := newTestParser(t, "+SHUTDOWN\r\nOK\r\n", parser.Config{})

	p.AddOOB("+SHUTDOWN\r\n", func() { p.Abort() })

	err := p.Recv("OK\r\n")
	if !errors.Is(err, parser.ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
}

func TestRecvReentrancyGuard(t *testing.T) {
	p, _ := newTestParser(t, "+EVT\r\nOK\r\n", parser.Config{})

	var handlerErr error
	p.AddOOB("+EVT\r\n", func() {
		handlerErr = p.Recv("OK\r\n")
	})

	if err := p.Recv("OK\r\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(handlerErr, parser.ErrBusy) {
		t.Errorf("expected ErrBusy from handler, got %v", handlerErr)
	}
}

func TestRecvOverflowResync(t *testing.T) {
	// The junk line is longer than the scratch buffer; the matcher drops
	// the overflowing accumulation and resynchronizes on the delimiter.
	junk := strings.Repeat("x", 100)
	p, _ := newTestParser(t, junk+"\r\nOK\r\n", parser.Config{BufferSize: 64})

	if err := p.Recv("OK\r\n"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecvDebugTrace(t *testing.T) {
	var trace bytes.Buffer
	p, _ := newTestParser(t, "junk\r\nOK\r\n", parser.Config{
		Debug:       true,
		DebugWriter: &trace,
	})

	if err := p.Recv("OK\r\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := trace.String()
	for _, want := range []string{"AT? OK", "AT< junk", "AT= OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}

	trace.Reset()
	if err := p.Recv("OK\r\n"); !errors.Is(err, parser.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(trace.String(), "AT(Timeout)") {
		t.Errorf("trace missing timeout marker:\n%s", trace.String())
	}
}
