package flatten

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"

	"nestcss/config"
)

// Values holds variables available for selector and output name templates.
type Values struct {
	Context  string
	Name     string
	Base     string
	Dir      string
	Selector string
	Format   string
}

// newValues prepares template values for source "src" (relative path
// including file name).
func newValues(src string, transliterate bool) Values {
	name := filepath.Base(src)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if transliterate {
		base = slug.Make(base)
	}
	dir := filepath.ToSlash(filepath.Dir(src))
	if dir == "." {
		dir = ""
	}
	return Values{Name: name, Base: base, Dir: dir}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
