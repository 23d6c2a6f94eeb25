package parser

import "strconv"

// sscan is a small scanf engine. The matcher uses it twice per response line:
// once with the rewritten probe format (all conversions suppressed, trailing
// %n) to validate the accumulated bytes, and once with the original template
// to extract values through the pointers in args.
//
// Supported conversions: %d %i %u %o %x %X %c %s %[...] %[^...], all with an
// optional * suppression flag and an optional width, plus %% for a literal
// percent and %n for the number of bytes consumed so far. A whitespace byte
// in the format matches any run of whitespace in the data, including none.
// %c and %[...] do not skip leading whitespace; %s and %[...] must match at
// least one byte.
//
// A conversion or literal that fails to match stops the scan. sscan returns
// the number of values assigned; %n assignments are not counted.
func sscan(data, format []byte, args ...any) int {
	var di, fi, argi, assigned int

	for fi < len(format) {
		c := format[fi]
		switch {
		case isSpace(c):
			for fi < len(format) && isSpace(format[fi]) {
				fi++
			}
			for di < len(data) && isSpace(data[di]) {
				di++
			}

		case c != '%':
			if di >= len(data) || data[di] != c {
				return assigned
			}
			di++
			fi++

		default:
			fi++
			if fi < len(format) && format[fi] == '%' {
				if di >= len(data) || data[di] != '%' {
					return assigned
				}
				di++
				fi++
				continue
			}

			suppress := false
			if fi < len(format) && format[fi] == '*' {
				suppress = true
				fi++
			}
			width := 0
			for fi < len(format) && format[fi] >= '0' && format[fi] <= '9' {
				width = width*10 + int(format[fi]-'0')
				fi++
			}
			if fi >= len(format) {
				return assigned
			}
			verb := format[fi]
			fi++

			switch verb {
			case 'd', 'i', 'u', 'o', 'x', 'X':
				for di < len(data) && isSpace(data[di]) {
					di++
				}
				n := scanNumTok(data[di:], verb, width)
				if n == 0 {
					return assigned
				}
				tok := data[di : di+n]
				di += n
				if suppress {
					continue
				}
				if argi >= len(args) || !storeInt(args[argi], tok, verb) {
					return assigned
				}
				argi++
				assigned++

			case 'c':
				n := width
				if n == 0 {
					n = 1
				}
				if di+n > len(data) {
					return assigned
				}
				tok := data[di : di+n]
				di += n
				if suppress {
					continue
				}
				if argi >= len(args) || !storeBytes(args[argi], tok) {
					return assigned
				}
				argi++
				assigned++

			case 's':
				for di < len(data) && isSpace(data[di]) {
					di++
				}
				start := di
				for di < len(data) && !isSpace(data[di]) && (width == 0 || di-start < width) {
					di++
				}
				if di == start {
					return assigned
				}
				if suppress {
					continue
				}
				if argi >= len(args) || !storeBytes(args[argi], data[start:di]) {
					return assigned
				}
				argi++
				assigned++

			case '[':
				negate := false
				if fi < len(format) && format[fi] == '^' {
					negate = true
					fi++
				}
				setStart := fi
				if fi < len(format) && format[fi] == ']' {
					// a ] right after [ or [^ is a member, not the terminator
					fi++
				}
				for fi < len(format) && format[fi] != ']' {
					fi++
				}
				if fi >= len(format) {
					return assigned // unterminated class
				}
				set := format[setStart:fi]
				fi++

				start := di
				for di < len(data) && inSet(data[di], set, negate) && (width == 0 || di-start < width) {
					di++
				}
				if di == start {
					return assigned
				}
				if suppress {
					continue
				}
				if argi >= len(args) || !storeBytes(args[argi], data[start:di]) {
					return assigned
				}
				argi++
				assigned++

			case 'n':
				if suppress {
					continue
				}
				if argi >= len(args) {
					return assigned
				}
				if dst, ok := args[argi].(*int); ok {
					*dst = di
				}
				argi++

			default:
				return assigned
			}
		}
	}
	return assigned
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// scanNumTok returns the length of the numeric token for verb at the start of
// d, honoring the conversion width. A zero return means no digits matched.
func scanNumTok(d []byte, verb byte, width int) int {
	if width > 0 && len(d) > width {
		d = d[:width]
	}
	i := 0
	if (verb == 'd' || verb == 'i') && i < len(d) && (d[i] == '+' || d[i] == '-') {
		i++
	}
	digits := 0
	switch verb {
	case 'd', 'u':
		for i < len(d) && d[i] >= '0' && d[i] <= '9' {
			i++
			digits++
		}
	case 'o':
		for i < len(d) && d[i] >= '0' && d[i] <= '7' {
			i++
			digits++
		}
	case 'x', 'X':
		if i+2 < len(d) && d[i] == '0' && (d[i+1] == 'x' || d[i+1] == 'X') && isHexDigit(d[i+2]) {
			i += 2
		}
		for i < len(d) && isHexDigit(d[i]) {
			i++
			digits++
		}
	case 'i':
		if i+2 < len(d) && d[i] == '0' && (d[i+1] == 'x' || d[i+1] == 'X') && isHexDigit(d[i+2]) {
			i += 2
			for i < len(d) && isHexDigit(d[i]) {
				i++
				digits++
			}
		} else {
			for i < len(d) && d[i] >= '0' && d[i] <= '9' {
				i++
				digits++
			}
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

func storeInt(arg any, tok []byte, verb byte) bool {
	s := string(tok)
	base := 10
	switch verb {
	case 'i':
		base = 0 // 0x and leading-zero prefixes decide
	case 'o':
		base = 8
	case 'x', 'X':
		base = 16
		if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
			s = s[2:]
		}
	}
	switch dst := arg.(type) {
	case *int:
		v, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return false
		}
		*dst = int(v)
	case *int64:
		v, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return false
		}
		*dst = v
	case *int32:
		v, err := strconv.ParseInt(s, base, 32)
		if err != nil {
			return false
		}
		*dst = int32(v)
	case *uint:
		v, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return false
		}
		*dst = uint(v)
	case *uint64:
		v, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return false
		}
		*dst = v
	case *uint32:
		v, err := strconv.ParseUint(s, base, 32)
		if err != nil {
			return false
		}
		*dst = uint32(v)
	default:
		return false
	}
	return true
}

// storeBytes copies tok out of the scratch buffer into the caller's slot.
func storeBytes(arg any, tok []byte) bool {
	switch dst := arg.(type) {
	case *string:
		*dst = string(tok)
	case *[]byte:
		*dst = append((*dst)[:0], tok...)
	case *byte:
		if len(tok) != 1 {
			return false
		}
		*dst = tok[0]
	default:
		return false
	}
	return true
}

// inSet reports whether b belongs to a %[...] class. The set supports a-z
// style ranges; a - at the start or end is a literal.
func inSet(b byte, set []byte, negate bool) bool {
	match := false
	for i := 0; i < len(set); {
		if i+2 < len(set) && set[i+1] == '-' {
			if b >= set[i] && b <= set[i+2] {
				match = true
			}
			i += 3
		} else {
			if b == set[i] {
				match = true
			}
			i++
		}
	}
	return match != negate
}
