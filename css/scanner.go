package css

import "strings"

// ScanDeclaration extracts the next flat declaration from raw.
//
// When '{' comes before any ';' nothing is consumed and ok is false: a nested
// block starts here. Otherwise decl is the trimmed text up to and including
// the first ';' and rest is everything after it. Text without terminator is
// taken as a whole declaration, unless it is blank.
func ScanDeclaration(raw string) (decl string, ok bool, rest string) {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			return "", false, raw
		case ';':
			return strings.TrimSpace(raw[:i+1]), true, raw[i+1:]
		}
	}

	// assume entire thing is a declaration if there is no terminating semicolon
	if decl = strings.TrimSpace(raw); decl == "" {
		return "", false, raw
	}
	return decl, true, ""
}

// ScanBlock extracts the next balanced "selector { body }" block from raw.
//
// Braces are counted so body may contain further balanced blocks. When ';'
// appears at depth zero, or the outer block never closes, nothing is consumed
// and ok is false. The opening brace is not part of selector, neither brace
// is part of body.
func ScanBlock(raw string) (selector, body string, ok bool, rest string) {
	var (
		depth int
		start = -1
	)

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ';':
			if depth == 0 {
				return "", "", false, raw
			}
		case '{':
			depth++
			if start < 0 {
				start = i
			}
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(raw[:start]), raw[start+1 : i], true, raw[i+1:]
			}
		}
	}
	return "", "", false, raw
}
