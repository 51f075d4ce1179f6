package flatten

import (
	"bytes"
	"fmt"

	yaml "gopkg.in/yaml.v3"

	"nestcss/common"
	"nestcss/css"
	"nestcss/utils/debug"
)

// render serialises flattened rules in requested output format.
func render(rules css.Rules, format common.OutputFmt) ([]byte, error) {
	switch format {
	case common.OutputFmtCss:
		buf := new(bytes.Buffer)
		if _, err := rules.Lines(buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case common.OutputFmtYaml:
		if len(rules) == 0 {
			return []byte("[]\n"), nil
		}
		return yaml.Marshal(rules)
	case common.OutputFmtTree:
		return []byte(debug.DumpRules(rules)), nil
	}
	return nil, fmt.Errorf("unsupported output format %s", format)
}
