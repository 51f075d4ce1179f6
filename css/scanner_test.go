package css_test

import (
	"testing"

	"nestcss/css"
)

func TestScanDeclaration(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantDecl string
		wantOK   bool
		wantRest string
	}{
		{"terminated", "color: red;margin: 0;", "color: red;", true, "margin: 0;"},
		{"trims surrounding whitespace", "\n  color: red;  rest", "color: red;", true, "  rest"},
		{"block comes first", "a{color: red;}", "", false, "a{color: red;}"},
		{"block after declaration", "color: red;a{}", "color: red;", true, "a{}"},
		{"no terminator", "color: red", "color: red", true, ""},
		{"no terminator with spaces", "  color: red \n", "color: red", true, ""},
		{"blank", " \t\n", "", false, " \t\n"},
		{"empty", "", "", false, ""},
		{"lonely terminator", ";x", ";", true, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, ok, rest := css.ScanDeclaration(tt.raw)
			if decl != tt.wantDecl || ok != tt.wantOK || rest != tt.wantRest {
				t.Errorf("ScanDeclaration(%q) = (%q, %v, %q), want (%q, %v, %q)",
					tt.raw, decl, ok, rest, tt.wantDecl, tt.wantOK, tt.wantRest)
			}
		})
	}
}

func TestScanBlock(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantSelector string
		wantBody     string
		wantOK       bool
		wantRest     string
	}{
		{
			name:         "simple",
			raw:          "a{color: red;}b",
			wantSelector: "a",
			wantBody:     "color: red;",
			wantOK:       true,
			wantRest:     "b",
		},
		{
			name:         "selector is trimmed, body is not",
			raw:          "  a:hover  { color: red; } ",
			wantSelector: "a:hover",
			wantBody:     " color: red; ",
			wantOK:       true,
			wantRest:     " ",
		},
		{
			name:         "nested braces",
			raw:          "@media print{a{color: black;}b{c{d: 1;}}}rest;",
			wantSelector: "@media print",
			wantBody:     "a{color: black;}b{c{d: 1;}}",
			wantOK:       true,
			wantRest:     "rest;",
		},
		{
			name:     "declaration first",
			raw:      "color: red;a{}",
			wantRest: "color: red;a{}",
		},
		{
			name:     "never closed",
			raw:      "a{b{color: red;}",
			wantRest: "a{b{color: red;}",
		},
		{
			name:     "no braces",
			raw:      "color: red",
			wantRest: "color: red",
		},
		{
			name:     "stray closing brace",
			raw:      "}a{",
			wantRest: "}a{",
		},
		{
			name:         "empty body",
			raw:          "a{}",
			wantSelector: "a",
			wantOK:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, body, ok, rest := css.ScanBlock(tt.raw)
			if selector != tt.wantSelector || body != tt.wantBody || ok != tt.wantOK || rest != tt.wantRest {
				t.Errorf("ScanBlock(%q) = (%q, %q, %v, %q), want (%q, %q, %v, %q)",
					tt.raw, selector, body, ok, rest, tt.wantSelector, tt.wantBody, tt.wantOK, tt.wantRest)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		parent, child, want string
	}{
		{"foo", "a", "foo a"},
		{"foo", ".bar", "foo .bar"},
		{"foo", "> li", "foo > li"},
		{"foo", ":hover", "foo:hover"},
		{"foo", "::after", "foo::after"},
		{"foo", "@media print", "foo@media print"},
		{"foo", "  :hover", "foo:hover"},
		{"foo", "\n\ta\n", "foo a"},
		{"foo", "", "foo"},
		{"foo a", "b", "foo a b"},
	}

	for _, tt := range tests {
		if got := css.Combine(tt.parent, tt.child); got != tt.want {
			t.Errorf("Combine(%q, %q) = %q, want %q", tt.parent, tt.child, got, tt.want)
		}
	}
}
