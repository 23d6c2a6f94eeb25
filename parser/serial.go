package parser

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialPort adapts a go.bug.st/serial port to the Port interface.
//
// The underlying serial API has no readability probe, so Readable performs a
// non-blocking single-byte read and stashes the byte for the next Get.
type SerialPort struct {
	port    serial.Port
	pending byte
	stashed bool
	closed  bool
}

var _ Port = (*SerialPort)(nil)

// OpenSerialPort opens the named serial device in 8N1 mode at the given baud
// rate. The returned port must be closed with Close when no longer needed.
func OpenSerialPort(name string, baudRate int) (*SerialPort, error) {
	if name == "" {
		return nil, fmt.Errorf("atgw: serial port name is required")
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &SerialPort{port: port}, nil
}

// Init discards any stale bytes buffered by the hardware.
func (s *SerialPort) Init(timeout time.Duration) error {
	if s.closed {
		return ErrPortClosed
	}
	s.stashed = false
	return s.port.ResetInputBuffer()
}

func (s *SerialPort) Get(timeout time.Duration) (byte, error) {
	if s.closed {
		return 0, ErrPortClosed
	}
	if s.stashed {
		s.stashed = false
		return s.pending, nil
	}
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("set read timeout: %w", err)
	}
	var one [1]byte
	n, err := s.port.Read(one[:])
	if err != nil {
		return 0, fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return one[0], nil
}

func (s *SerialPort) Put(b byte) error {
	if s.closed {
		return ErrPortClosed
	}
	n, err := s.port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("serial write: %d of 1 byte", n)
	}
	return nil
}

func (s *SerialPort) Readable() bool {
	if s.closed {
		return false
	}
	if s.stashed {
		return true
	}
	// Timeout zero makes Read return immediately with whatever is pending.
	if err := s.port.SetReadTimeout(0); err != nil {
		return false
	}
	var one [1]byte
	n, err := s.port.Read(one[:])
	if err != nil || n == 0 {
		return false
	}
	s.pending = one[0]
	s.stashed = true
	return true
}

// Close releases the serial device. Further operations fail with
// ErrPortClosed.
func (s *SerialPort) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}
