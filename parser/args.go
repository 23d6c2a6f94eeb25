package parser

// AnalyseArgs splits a comma-separated AT parameter list in place and returns
// at most max fields as subslices of args. A comma escaped as \, stays a
// literal comma: the backslash is removed by shifting the rest of the buffer
// left, so args is mutated. Only the single-character \, escape is
// recognized; \\ and other compound escapes pass through untouched.
//
// Empty fields are valid and come back as zero-length slices. Once max-1
// separators have been consumed the remainder of the buffer becomes the last
// field unsplit, so the returned count never exceeds max. Splitting a field
// that contains no unescaped commas returns it unchanged, which makes the
// operation idempotent on its own output.
//
// Typical use: match the parameter portion of a response with
// Recv("+CMD: %[^\r]\r\n", &params) and hand the bytes to AnalyseArgs.
func AnalyseArgs(args []byte, max int) [][]byte {
	if max <= 0 {
		return nil
	}
	fields := make([][]byte, 0, max)
	start := 0
	i := 0
	for i < len(args) && len(fields) < max-1 {
		if args[i] != ',' {
			i++
			continue
		}
		if i > 0 && args[i-1] == '\\' {
			// \, keeps the comma: drop the backslash and resume after the
			// comma, which moved one byte left.
			copy(args[i-1:], args[i:])
			args = args[:len(args)-1]
			continue
		}
		fields = append(fields, args[start:i])
		start = i + 1
		i++
	}
	// The last field still needs its escapes consumed.
	for ; i < len(args); i++ {
		if args[i] == ',' && i > 0 && args[i-1] == '\\' {
			copy(args[i-1:], args[i:])
			args = args[:len(args)-1]
			i--
		}
	}
	return append(fields, args[start:])
}
