package parser

import "bytes"

// ProcessOOB drains pending out-of-band data from the port. It returns true
// once a registered prefix matched and its handler ran, and false when the
// port has nothing pending or the drain timed out. Command senders call it in
// a loop before every Send to flush queued notifications; Send does the same
// internally.
//
// Complete lines that match no registered prefix are forwarded to the
// unprocessed-data sink, if one is installed, and discarded.
func (p *Parser) ProcessOOB() bool {
	if p.enter() != nil {
		return false
	}
	defer p.leave()
	return p.processOOB()
}

func (p *Parser) processOOB() bool {
	if !p.port.Readable() {
		return false
	}

	acc := p.buf[:0]
	for {
		c, err := p.port.Get(p.timeout)
		if err != nil {
			return false
		}
		acc = append(acc, c)

		for _, e := range p.oobs {
			if len(acc) == len(e.prefix) && string(acc) == string(e.prefix) {
				p.tracef("AT! %s\r\n", e.prefix)
				if e.fn != nil {
					e.fn()
				}
				return true
			}
		}

		// Flush on a complete line or when the scratch runs out.
		if len(acc)+1 >= cap(p.buf) || bytes.HasSuffix(acc, p.inDelim) {
			p.tracef("AT< %s, %d\r\n", acc, len(acc))
			if p.unprocessed != nil {
				p.unprocessed(acc)
			}
			acc = acc[:0]
		}
	}
}
