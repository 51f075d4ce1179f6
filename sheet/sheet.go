// Package sheet accumulates flat rules produced by css.Flattener and renders
// them as a single stylesheet.
package sheet

import (
	"slices"
	"sync"

	"nestcss/css"
)

// Sheet is a destination for flattened rules. Rules are kept in the order
// they were added, Flush drops everything added so far.
type Sheet interface {
	Add(rules ...css.Rule) error
	Flush() error
	Serialise() (string, error)
}

// Memory keeps rules in memory. Zero value is ready to use.
type Memory struct {
	mu    sync.Mutex
	rules css.Rules
}

// NewMemory creates empty in-memory sheet.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(rules ...css.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range rules {
		r.Body = slices.Clone(r.Body)
		m.rules = append(m.rules, r)
	}
	return nil
}

func (m *Memory) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = nil
	return nil
}

func (m *Memory) Serialise() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rules.String(), nil
}

// Rules returns copy of accumulated rules.
func (m *Memory) Rules() css.Rules {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.rules)
}

// Len returns number of accumulated rules.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.rules)
}
