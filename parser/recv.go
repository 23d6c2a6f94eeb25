package parser

import (
	"fmt"
)

// fillerByte is the synthetic byte inserted when a colon is immediately
// followed by the line ending. A probe like "cmd:%*s\r\n%n" cannot reach its
// %n sentinel against the empty string, so a non-empty filler is spliced in
// for validation and removed again before extraction.
const fillerByte = 'x'

// Recv consumes bytes from the port and matches them against a scanf-style
// response template, storing extracted values through the pointers in args.
//
// The template describes one or more lines, in order. A literal \n in the
// template (outside a %[^...] class) marks a whole-line boundary: validation
// is deferred until a \n arrives on the wire. Lines that fail to match are
// discarded silently on the next delimiter and matching continues; out-of-band
// prefixes registered with AddOOB are probed at every byte and their handlers
// run before the match completes.
//
// Recv fails only on a per-byte timeout (ErrTimeout) or when a handler called
// Abort (ErrAborted). Output slots are written only when the whole template
// has matched end to end.
func (p *Parser) Recv(format string, args ...any) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()
	p.aborted = false
	return p.recv(format, args)
}

func (p *Parser) recv(format string, args []any) error {
	var (
		inPrev  byte
		count   int
		fillers []int
	)
	resp := format

line:
	for len(resp) > 0 {
		lineLen, wholeLine, nconv := p.probeLine(resp)
		p.tracef("AT? %s\n", p.probe)

		// The probe and the accumulation share the scratch budget, the way
		// the whole buffer is sized for embedded hosts.
		limit := cap(p.buf) - len(p.probe)
		acc := p.buf[:0]
		fillers = fillers[:0]

		for {
			c, err := p.port.Get(p.timeout)
			if err != nil {
				p.tracef("AT(Timeout)\n")
				return fmt.Errorf("receive %q: %w", format, err)
			}

			if c == '\n' && inPrev == ':' {
				fillers = append(fillers, len(acc))
				acc = append(acc, fillerByte)
			}
			// CR is transparent here so that ":\r\n" gets the filler too
			if c != '\r' {
				inPrev = c
			}
			acc = append(acc, c)

			for _, e := range p.oobs {
				if len(acc) == len(e.prefix) && string(acc) == string(e.prefix) {
					p.tracef("AT! %s\n", e.prefix)
					if e.fn != nil {
						e.fn()
					}
					if p.aborted {
						p.tracef("AT(Aborted)\n")
						return fmt.Errorf("receive %q: %w", format, ErrAborted)
					}
					// The handler may have clobbered the non-reentrant
					// scratch, so rebuild the probe and rescan this line.
					continue line
				}
			}

			// Don't attempt validation until the delimiter arrives when the
			// template asked for the whole line. This lets "Foo: %s\n" wait
			// for the full string instead of matching its first byte (the
			// scanner itself treats \n as any other whitespace).
			if !wholeLine || c == '\n' {
				count = -1
				sscan(acc, p.probe, &count)
				if count == len(acc) {
					acc = spliceFillers(acc, fillers)
					p.tracef("AT= %s\n", acc)
					n := nconv
					if n > len(args) {
						n = len(args)
					}
					sscan(acc, []byte(resp[:lineLen]), args[:n]...)
					args = args[n:]
					resp = resp[lineLen:]
					continue line
				}
			}

			// Clear the accumulation on a newline or when the scratch runs
			// out; running out of space usually means binary data.
			if c == '\n' || len(acc)+1 >= limit {
				p.tracef("AT< %s", acc)
				acc = acc[:0]
				fillers = fillers[:0]
			}
		}
	}
	return nil
}

// probeLine rewrites the next template line into the validation probe held in
// p.probe: every non-suppressed conversion becomes a suppressed one and a %n
// sentinel is appended, so a successful scan reports how many bytes it
// consumed. It returns the number of template bytes in the line, whether the
// line ends in a \n that gates validation, and how many conversions will
// consume caller arguments during extraction.
func (p *Parser) probeLine(resp string) (lineLen int, wholeLine bool, nconv int) {
	p.probe = p.probe[:0]
	i := 0
	for i < len(resp) {
		switch {
		case resp[i] == '%' && i+1 < len(resp) && resp[i+1] == '%':
			p.probe = append(p.probe, '%', '%')
			i += 2
		case resp[i] == '%' && i+1 < len(resp) && resp[i+1] != '*':
			p.probe = append(p.probe, '%', '*')
			i++
			nconv++
		default:
			p.probe = append(p.probe, resp[i])
			i++
			// Find line breaks, taking care not to be fooled when they sit
			// in a %[^\n] conversion specification.
			if resp[i-1] == '\n' && !(i >= 3 && resp[i-3] == '[' && resp[i-2] == '^') {
				wholeLine = true
				p.probe = append(p.probe, '%', 'n')
				return i, wholeLine, nconv
			}
		}
	}
	p.probe = append(p.probe, '%', 'n')
	return i, wholeLine, nconv
}

// spliceFillers removes the synthetic filler bytes at the recorded positions,
// shifting the remaining bytes left in place.
func spliceFillers(acc []byte, pos []int) []byte {
	if len(pos) == 0 {
		return acc
	}
	out := acc[:0]
	k := 0
	for i := 0; i < len(acc); i++ {
		if k < len(pos) && i == pos[k] {
			k++
			continue
		}
		out = append(out, acc[i])
	}
	return out
}
