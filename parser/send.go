package parser

import "fmt"

// Send drains pending out-of-band data, formats the command with printf
// semantics and transmits it byte by byte followed by the output delimiter.
// It returns an error as soon as a byte cannot be written; bytes before the
// failure may already be on the wire.
//
// Out-of-band data is only drained before the command goes out, not while it
// is being written.
func (p *Parser) Send(format string, args ...any) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	for p.processOOB() {
	}

	cmd := fmt.Sprintf(format, args...)
	for i := 0; i < len(cmd); i++ {
		if err := p.port.Put(cmd[i]); err != nil {
			return fmt.Errorf("send %q: %w", cmd, err)
		}
	}
	for _, b := range p.outDelim {
		if err := p.port.Put(b); err != nil {
			return fmt.Errorf("send %q: %w", cmd, err)
		}
	}
	p.tracef("AT> %s\n", cmd)
	return nil
}
