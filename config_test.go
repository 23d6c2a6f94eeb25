package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.SerialPort != "/dev/ttyUSB0" || config.BaudRate != 115200 {
		t.Errorf("unexpected defaults: %+v", config)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atgw.toml")
	file := []byte("serial_port = \"/dev/ttyACM0\"\nbaud_rate = 9600\nat_trace = true\n")
	if err := os.WriteFile(path, file, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BAUD_RATE", "57600")

	config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// File overrides defaults, env overrides the file.
	if config.SerialPort != "/dev/ttyACM0" {
		t.Errorf("expected serial port from file, got %q", config.SerialPort)
	}
	if config.BaudRate != 57600 {
		t.Errorf("expected baud rate from env, got %d", config.BaudRate)
	}
	if !config.ATTrace {
		t.Error("expected at_trace from file")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(WithDefaults(), WithFile("/nonexistent/atgw.toml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadConfigEmptyFilePathIsNoop(t *testing.T) {
	if _, err := LoadConfig(WithDefaults(), WithFile("")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
