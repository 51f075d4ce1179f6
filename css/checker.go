package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Warning describes a problem found in flattened rules.
type Warning struct {
	Selector    string
	Declaration string
	Message     string
}

func (w Warning) String() string {
	if w.Declaration == "" {
		return w.Selector + ": " + w.Message
	}
	return w.Selector + ": " + w.Message + " (" + w.Declaration + ")"
}

// Checker verifies flattened rules using real CSS tokenizer. Flattening
// itself never validates anything, so this is the place to look for typos
// before stylesheet is shipped.
type Checker struct {
	log *zap.Logger
}

// NewChecker creates a new Checker.
func NewChecker(log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{log: log.Named("css-checker")}
}

// Check returns warnings for all rules in order. The first rule is the top
// level one and is allowed to be empty.
func (c *Checker) Check(rules Rules) []Warning {
	var warnings []Warning
	for i, r := range rules {
		if strings.ContainsRune(r.Selector, '@') {
			warnings = append(warnings, Warning{Selector: r.Selector, Message: "at-rule is part of the selector"})
		}
		if i > 0 && len(r.Body) == 0 {
			warnings = append(warnings, Warning{Selector: r.Selector, Message: "empty rule"})
		}
		for _, decl := range r.Body {
			if _, _, ok := SplitDeclaration(decl); !ok {
				warnings = append(warnings, Warning{Selector: r.Selector, Declaration: decl, Message: "malformed declaration"})
			}
		}
	}
	for _, w := range warnings {
		c.log.Debug("Check failed", zap.Stringer("warning", w))
	}
	return warnings
}

// SplitDeclaration breaks single declaration into lower-cased property name
// and its value. ok is false if decl is not exactly one "property: value"
// declaration.
func SplitDeclaration(decl string) (prop, value string, ok bool) {
	parser := css.NewParser(parse.NewInputString(decl), true)

	gt, _, data := parser.Next()
	switch gt {
	case css.DeclarationGrammar, css.CustomPropertyGrammar:
		prop = string(data)
		value = joinValues(parser.Values())
	default:
		return "", "", false
	}
	if prop == "" {
		return "", "", false
	}

	// anything else except end of input means there was more than one declaration
	if gt, _, _ = parser.Next(); gt != css.ErrorGrammar || !errors.Is(parser.Err(), io.EOF) {
		return "", "", false
	}
	return prop, value, true
}

// joinValues builds value text from tokens, collapsing whitespace.
func joinValues(tokens []css.Token) string {
	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	return sb.String()
}
