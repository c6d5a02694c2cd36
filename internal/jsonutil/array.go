// Package jsonutil locates JSON fragments embedded in free-form text, such
// as model output that surrounds a JSON array with prose.
package jsonutil

// FirstArray returns the first balanced JSON array substring of text,
// including the enclosing brackets. Brackets inside JSON strings (and escaped
// quotes inside those strings) do not affect balancing. Returns false when no
// complete array is present.
func FirstArray(text string) (string, bool) {
	arr, _, ok := FirstArrayFrom(text, 0)
	return arr, ok
}

// FirstArrayFrom is FirstArray starting the scan at offset from. It also
// returns the offset just past the closing bracket, so callers can resume
// the scan when a candidate turns out not to be the array they wanted.
func FirstArrayFrom(text string, from int) (arr string, end int, ok bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	if from < 0 {
		from = 0
	}

	for i := from; i < len(text); i++ {
		c := text[i]

		if start == -1 {
			if c == '[' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], i + 1, true
			}
		}
	}

	return "", len(text), false
}
