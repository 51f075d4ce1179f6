package debug

import (
	"nestcss/css"
)

// TreeTracer records flattener decisions as indented tree. Declarations and
// blocks found in a nested block are indented under it.
type TreeTracer struct {
	tw *TreeWriter
}

var _ css.Tracer = (*TreeTracer)(nil)

func NewTreeTracer() *TreeTracer {
	return &TreeTracer{tw: NewTreeWriter()}
}

func (t *TreeTracer) Block(depth int, _, selector string) {
	t.tw.Line(depth, "block: %s", selector)
}

func (t *TreeTracer) Declaration(depth int, _, decl string) {
	t.tw.TextBlock(depth, "decl", decl)
}

func (t *TreeTracer) Stop(depth int, _, remainder string) {
	t.tw.TextBlock(depth, "dropped", remainder)
}

func (t *TreeTracer) String() string {
	return t.tw.String()
}

// DumpRules renders flat rules one per entry with their declarations.
func DumpRules(rules css.Rules) string {
	tw := NewTreeWriter()
	for i, r := range rules {
		tw.Line(0, "rule %d: %s", i, r.Selector)
		for _, decl := range r.Body {
			tw.TextBlock(1, "decl", decl)
		}
	}
	return tw.String()
}
