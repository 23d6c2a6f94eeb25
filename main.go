package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"i4.energy/across/atgw/parser"
)

func main() {
	pflag.String("config", "", "Path to a TOML configuration file")
	pflag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	pflag.Int("baud-rate", 115200, "Baud rate for serial communication")
	pflag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pflag.Bool("at-trace", false, "Trace AT traffic on stdout")
	pflag.Parse()

	configFile, _ := pflag.CommandLine.GetString("config")
	config, err := LoadConfig(WithDefaults(), WithFile(configFile), WithEnv(), WithFlags(pflag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	port, err := parser.OpenSerialPort(config.SerialPort, config.BaudRate)
	if err != nil {
		logger.Error("Failed to open serial port", "error", err)
		os.Exit(1)
	}

	p, err := parser.New(port, parser.Config{
		Timeout: time.Second,
		Debug:   config.ATTrace,
	})
	if err != nil {
		logger.Error("Failed to create parser", "error", err)
		os.Exit(1)
	}

	bridge := &Bridge{
		Logger: logger.With("component", "bridge"),
		Parser: p,
	}
	bridge.RegisterOOB()
	if err := bridge.Init(); err != nil {
		logger.Error("Failed to initialize modem", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting AT gateway", "serial_port", config.SerialPort, "baud_rate", config.BaudRate)

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: bridge,
	}

	// Drain unsolicited notifications between requests.
	pumpDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-pumpDone:
				return
			case <-ticker.C:
				bridge.Pump()
			}
		}
	}()

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	close(pumpDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing serial port")
	if err := port.Close(); err != nil {
		logger.Error("Failed to close serial port", "error", err)
		os.Exit(1)
	}
}
