package parser

import "fmt"

// Read fills buf with exactly len(buf) raw bytes from the port, applying the
// per-byte timeout to each. It returns the number of bytes read before any
// failure. Read bypasses the scratch buffer and the delimiters entirely; it
// exists to carry binary payloads after a textual command has switched the
// peripheral into a data mode, and is safe to call from an out-of-band
// handler.
func (p *Parser) Read(buf []byte) (int, error) {
	for i := range buf {
		c, err := p.port.Get(p.timeout)
		if err != nil {
			return i, fmt.Errorf("read: %w", err)
		}
		buf[i] = c
	}
	return len(buf), nil
}

// Write transmits buf unmodified, byte by byte, with no delimiter appended.
// It returns the number of bytes written before any failure.
func (p *Parser) Write(buf []byte) (int, error) {
	for i, b := range buf {
		if err := p.port.Put(b); err != nil {
			return i, fmt.Errorf("write: %w", err)
		}
	}
	return len(buf), nil
}
