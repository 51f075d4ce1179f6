package css

import (
	"io"
	"strings"
)

// Rule is a single flat CSS rule: a fully resolved selector and its
// declarations in source order. Declarations keep their terminating
// semicolon and Body never holds nested blocks.
type Rule struct {
	Selector string   `yaml:"selector"`
	Body     []string `yaml:"body"`
}

// String renders the rule as "selector{decl1decl2...}". No escaping is
// performed and nothing is inserted between declarations.
func (r Rule) String() string {
	var sb strings.Builder
	sb.Grow(len(r.Selector) + 2 + r.bodyLen())
	r.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// WriteTo writes serialized rule to w, implementing io.WriterTo.
func (r Rule) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := io.WriteString(w, r.Selector+"{")
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, decl := range r.Body {
		n, err = io.WriteString(w, decl)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err = io.WriteString(w, "}")
	total += int64(n)
	return total, err
}

func (r Rule) bodyLen() int {
	size := 0
	for _, decl := range r.Body {
		size += len(decl)
	}
	return size
}

// Rules is an ordered sequence of flat rules as produced by the Flattener.
type Rules []Rule

// WriteTo writes all rules to w in sequence order with no separators.
func (rs Rules) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, r := range rs {
		n, err := r.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns concatenated text of all rules.
func (rs Rules) String() string {
	var sb strings.Builder
	rs.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// Lines writes every rule on its own line, which is how the command line
// tool outputs stylesheets.
func (rs Rules) Lines(w io.Writer) (int64, error) {
	var total int64
	for _, r := range rs {
		n, err := r.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
		m, err := io.WriteString(w, "\n")
		total += int64(m)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// BySelector returns all rules with exactly matching selector in order.
func (rs Rules) BySelector(selector string) Rules {
	var matches Rules
	for _, r := range rs {
		if r.Selector == selector {
			matches = append(matches, r)
		}
	}
	return matches
}
