package css

import (
	"strings"

	"go.uber.org/zap"
)

// Tracer receives scanner decisions made by the Flattener. It exists for
// troubleshooting and cannot influence the result. Depth is 0 for the top
// level call and grows by one for every nested block.
type Tracer interface {
	// Block is called when nested block was found, selector is already
	// combined with parent.
	Block(depth int, parent, selector string)
	// Declaration is called when declaration was added to selector's rule.
	Declaration(depth int, selector, decl string)
	// Stop is called when neither scanner could make progress and the rest
	// of the input is dropped.
	Stop(depth int, selector, remainder string)
}

// Option configures Flattener.
type Option func(*Flattener)

// WithTracer attaches tracer to the Flattener.
func WithTracer(t Tracer) Option {
	return func(f *Flattener) {
		f.trace = t
	}
}

// Flattener turns nested CSS-like text into a list of flat rules.
// It holds no per-call state and may be used from several goroutines as long
// as the tracer permits it.
type Flattener struct {
	log   *zap.Logger
	trace Tracer
}

// NewFlattener creates a new Flattener.
func NewFlattener(log *zap.Logger, opts ...Option) *Flattener {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Flattener{log: log.Named("css-flattener")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten is a shortcut for flattening without logging or tracing.
func Flatten(raw, top string) Rules {
	return NewFlattener(nil).Flatten(raw, top)
}

// Flatten resolves all nested blocks of raw against top selector.
//
// The first rule always has top as selector and collects every declaration
// found on this level, before and after nested blocks. Each nested block is
// flattened recursively and its rules are placed into the result at the
// point of the block occurrence. Malformed trailing input is dropped.
func (f *Flattener) Flatten(raw, top string) Rules {
	return f.flatten(raw, top, 0)
}

func (f *Flattener) flatten(raw, top string, depth int) Rules {
	rules := Rules{{Selector: top}}

	// trailing whitespace is not worth reporting
	for remaining := raw; strings.TrimSpace(remaining) != ""; {
		if selector, body, ok, rest := ScanBlock(remaining); ok {
			nested := Combine(top, selector)
			f.log.Debug("Nested block",
				zap.Int("depth", depth), zap.String("parent", top), zap.String("selector", nested))
			if f.trace != nil {
				f.trace.Block(depth, top, nested)
			}
			rules = append(rules, f.flatten(body, nested, depth+1)...)
			remaining = rest
			continue
		}

		if decl, ok, rest := ScanDeclaration(remaining); ok {
			f.log.Debug("Declaration",
				zap.Int("depth", depth), zap.String("selector", top), zap.String("declaration", decl))
			if f.trace != nil {
				f.trace.Declaration(depth, top, decl)
			}
			rules[0].Body = append(rules[0].Body, decl)
			remaining = rest
			continue
		}

		f.log.Debug("Unable to continue, dropping the rest of the block",
			zap.Int("depth", depth), zap.String("selector", top), zap.String("remainder", remaining))
		if f.trace != nil {
			f.trace.Stop(depth, top, remaining)
		}
		break
	}
	return rules
}
