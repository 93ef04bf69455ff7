// Package form provides an in-process work item form used by the CLI and tests.
package form

import (
	"context"
	"sync"
)

// InvalidField describes a field the host already flagged.
type InvalidField struct {
	Name        string
	Description string
}

// Memory is a work item form held in memory. It is safe for concurrent use,
// since debounced checks run on their own goroutine.
type Memory struct {
	mu      sync.Mutex
	fields  map[string]any
	invalid []InvalidField
	err     string
	hasErr  bool

	setCount   int
	clearCount int
}

// NewMemory creates a form with the given initial field values.
func NewMemory(fields map[string]any) *Memory {
	m := &Memory{fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		m.fields[k] = v
	}
	return m
}

// FieldValue returns the current value of name, or nil when unset.
func (m *Memory) FieldValue(_ context.Context, name string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields[name], nil
}

// SetField updates a field value.
func (m *Memory) SetField(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[name] = value
}

// InvalidFieldDescriptions returns descriptions of fields flagged by other rules.
func (m *Memory) InvalidFieldDescriptions(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.invalid))
	for _, f := range m.invalid {
		out = append(out, f.Description)
	}
	return out, nil
}

// MarkInvalid flags a field as invalid.
func (m *Memory) MarkInvalid(f InvalidField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalid = append(m.invalid, f)
}

// SetError sets the form-level error.
func (m *Memory) SetError(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = message
	m.hasErr = true
	m.setCount++
	return nil
}

// ClearError clears the form-level error.
func (m *Memory) ClearError(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = ""
	m.hasErr = false
	m.clearCount++
	return nil
}

// CurrentError returns the form-level error, if any.
func (m *Memory) CurrentError() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err, m.hasErr
}

// Calls reports how often SetError and ClearError were invoked.
func (m *Memory) Calls() (set, clear int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCount, m.clearCount
}
