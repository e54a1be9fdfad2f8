package gateway

import "errors"

// ErrNoJSONObject means no balanced top-level JSON object was found.
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// ExtractJSONObject returns the first balanced top-level {...} in text.
// Models wrap their answer in prose and code fences, so the scan starts at
// the first '{' and tracks brace depth, honoring string literals and escape
// sequences. Anything after the balanced object, braces included, is
// ignored.
func ExtractJSONObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", ErrNoJSONObject
}
