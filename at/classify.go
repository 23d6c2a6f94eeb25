package at

import "strings"

// Classify identifies the nature of a modem output line. Drivers use it to
// decide when a command's response is complete and which lines arrived
// unsolicited.
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), strings.HasPrefix(line, UrcMessageReport), line == UrcCall:
		return TypeURC
	default:
		return TypeData
	}
}
