// Package style is a front end for the flattener: it composes style
// fragments, derives class names from their content and registers resulting
// rules in a sheet.
package style

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nestcss/css"
	"nestcss/sheet"
)

// ClassPrefix starts every generated class name.
const ClassPrefix = "css-"

// namespace for name based class identifiers, any fixed value works as long
// as it never changes between releases.
var namespace = uuid.MustParse("5f0e4c3a-6b8d-4d0e-9a55-8f2c1a7b3e10")

// Registry remembers raw text for each class it produced.
type Registry struct {
	mu      sync.Mutex
	classes map[string]string
	sheet   sheet.Sheet
	flat    *css.Flattener
	log     *zap.Logger
}

// NewRegistry creates registry which adds rules to sh. Passing nil sheet
// keeps rules only as raw text.
func NewRegistry(sh sheet.Sheet, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		classes: make(map[string]string),
		sheet:   sh,
		flat:    css.NewFlattener(log),
		log:     log.Named("style"),
	}
}

// ClassName derives class name from raw style text.
func ClassName(raw string) string {
	id := uuid.NewSHA1(namespace, []byte(raw))
	return ClassPrefix + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// Compose joins fragments into a single style and returns its class name.
// A fragment which is a class name returned earlier is replaced with the
// text it was registered with, so styles can be mixed into each other.
// Rules are added to the sheet only the first time a class is seen.
func (r *Registry) Compose(fragments ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if raw, ok := r.classes[f]; ok {
			f = raw
		}
		sb.WriteString(f)
	}
	raw := sb.String()

	class := ClassName(raw)
	if _, ok := r.classes[class]; ok {
		return class, nil
	}
	r.classes[class] = raw

	rules := r.flat.Flatten(raw, "."+class)
	r.log.Debug("Registered class", zap.String("class", class), zap.Int("rules", len(rules)))
	if r.sheet != nil {
		if err := r.sheet.Add(rules...); err != nil {
			delete(r.classes, class)
			return "", err
		}
	}
	return class, nil
}

// Raw returns text registered for class.
func (r *Registry) Raw(class string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.classes[class]
	return raw, ok
}
