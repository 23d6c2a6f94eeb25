package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"i4.energy/across/atgw/at"
	"i4.energy/across/atgw/parser"
)

// maxResponseLines bounds how many lines a single command may produce before
// the bridge gives up waiting for a final result code.
const maxResponseLines = 64

// Notification is one recorded unsolicited event from the peripheral.
type Notification struct {
	Prefix string    `json:"prefix"`
	Params []string  `json:"params,omitempty"`
	Time   time.Time `json:"time"`
}

// Bridge exposes a serial-attached AT peripheral over HTTP and records
// unsolicited notifications as they arrive.
//
// The parser is single-owner, so every parser operation runs under pmu. The
// notification log has its own lock because handlers append to it from inside
// parser callbacks, while pmu is already held.
type Bridge struct {
	Logger *slog.Logger
	Parser *parser.Parser

	pmu sync.Mutex

	nmu           sync.Mutex
	notifications []Notification
}

// RegisterOOB wires the unsolicited prefixes the bridge cares about into the
// parser's out-of-band registry.
func (b *Bridge) RegisterOOB() {
	for _, prefix := range []string{at.UrcNewMsg, at.UrcMessageReport} {
		b.Parser.AddOOB(prefix, func() { b.recordURC(prefix) })
	}
	// RING carries no parameters; register the full line so nothing is left
	// to drain.
	b.Parser.AddOOB(at.UrcCall+at.CRLF, func() {
		b.record(Notification{Prefix: at.UrcCall, Time: time.Now()})
	})
	b.Parser.SetUnprocessedFunc(func(line []byte) {
		b.Logger.Debug("Unprocessed modem data", "line", string(bytes.TrimSpace(line)))
	})
}

// Init puts the peripheral into a known state: wake-up check, echo off,
// numeric error reports.
func (b *Bridge) Init() error {
	b.pmu.Lock()
	defer b.pmu.Unlock()

	for _, cmd := range []string{"AT", "ATE0", "AT+CMEE=1"} {
		if err := b.Parser.Send("%s", cmd); err != nil {
			return fmt.Errorf("initialize modem: %w", err)
		}
		if err := b.Parser.Recv("OK\r\n"); err != nil {
			return fmt.Errorf("initialize modem: %s: %w", cmd, err)
		}
	}
	return nil
}

// Pump drains queued unsolicited data. main runs this periodically so
// notifications are recorded promptly instead of at the next command.
func (b *Bridge) Pump() {
	b.pmu.Lock()
	defer b.pmu.Unlock()
	for b.Parser.ProcessOOB() {
	}
}

// recordURC runs as an out-of-band handler: only raw reads are allowed here,
// so the rest of the notification line is drained byte by byte.
func (b *Bridge) recordURC(prefix string) {
	n := Notification{Prefix: strings.TrimSuffix(prefix, ":"), Time: time.Now()}
	rest, err := b.readLine()
	if err != nil {
		b.Logger.Warn("Truncated notification", "prefix", prefix, "error", err)
	}
	for _, f := range parser.AnalyseArgs(rest, 8) {
		n.Params = append(n.Params, strings.TrimSpace(string(f)))
	}
	b.record(n)
}

func (b *Bridge) record(n Notification) {
	b.nmu.Lock()
	b.notifications = append(b.notifications, n)
	b.nmu.Unlock()
	b.Logger.Info("Notification", "prefix", n.Prefix, "params", n.Params)
}

// readLine drains the remainder of the current line with raw reads.
func (b *Bridge) readLine() ([]byte, error) {
	var line []byte
	var one [1]byte
	for len(line) < maxLineBytes {
		if _, err := b.Parser.Read(one[:]); err != nil {
			return line, err
		}
		line = append(line, one[0])
		if bytes.HasSuffix(line, []byte(at.CRLF)) {
			return line[:len(line)-len(at.CRLF)], nil
		}
	}
	return line, fmt.Errorf("notification line exceeds %d bytes", maxLineBytes)
}

const maxLineBytes = 512

// command sends cmd and collects response lines until a final result code.
func (b *Bridge) command(cmd string) ([]string, error) {
	b.pmu.Lock()
	defer b.pmu.Unlock()

	if err := b.Parser.Send("%s", cmd); err != nil {
		return nil, err
	}
	var lines []string
	for len(lines) < maxResponseLines {
		var line string
		if err := b.Parser.Recv("%[^\r]\r\n", &line); err != nil {
			return lines, err
		}
		lines = append(lines, line)
		if at.Classify(line) == at.TypeFinal {
			if line != at.OK {
				return lines, fmt.Errorf("command failed: %s", line)
			}
			return lines, nil
		}
	}
	return lines, fmt.Errorf("no final result within %d lines", maxResponseLines)
}

// ServeHTTP implements the http.Handler interface for the Bridge struct
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /cmd", b.handleCommand)
	mux.HandleFunc("GET /signal", b.handleSignal)
	mux.HandleFunc("GET /notifications", b.handleNotifications)
	mux.ServeHTTP(w, r)
}

func (b *Bridge) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleCommand runs one AT command and returns every response line up to and
// including the final result code.
func (b *Bridge) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command string `json:"command"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(strings.ToUpper(req.Command), "AT") {
		b.sendError(w, "'command' must be an AT command", http.StatusBadRequest)
		return
	}

	lines, err := b.command(req.Command)
	if err != nil {
		b.Logger.Error("Command failed", "command", req.Command, "error", err)
		b.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Lines []string `json:"lines"`
	}{Lines: lines})
}

// handleSignal queries signal quality with typed extraction.
func (b *Bridge) handleSignal(w http.ResponseWriter, r *http.Request) {
	var rssi, ber int

	b.pmu.Lock()
	err := b.Parser.Send("AT+CSQ")
	if err == nil {
		err = b.Parser.Recv("+CSQ: %d,%d\r\n", &rssi, &ber)
	}
	if err == nil {
		err = b.Parser.Recv("OK\r\n")
	}
	b.pmu.Unlock()

	if err != nil {
		b.Logger.Error("Signal query failed", "error", err)
		b.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		RSSI int `json:"rssi"`
		BER  int `json:"ber"`
	}{RSSI: rssi, BER: ber})
}

func (b *Bridge) handleNotifications(w http.ResponseWriter, r *http.Request) {
	b.nmu.Lock()
	notifications := make([]Notification, len(b.notifications))
	copy(notifications, b.notifications)
	b.nmu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Notifications []Notification `json:"notifications"`
	}{Notifications: notifications})
}
