package css

import "strings"

// Combine joins a nested selector with its enclosing selector.
//
// Children starting with ':' (pseudo-class or pseudo-element) or '@' (at-rule
// such as a media query) are appended directly, anything else becomes a
// descendant selector separated by a single space. Only the first character
// of the trimmed child is inspected, this is not a selector grammar. An empty
// child resolves to the parent itself.
func Combine(parent, child string) string {
	child = strings.TrimSpace(child)
	if child == "" {
		return parent
	}
	if isSuffixSelector(child) {
		return parent + child
	}
	return parent + " " + child
}

func isSuffixSelector(s string) bool {
	return s[0] == ':' || s[0] == '@'
}
