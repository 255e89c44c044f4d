// Package health keeps a registry of named boolean conditions, such as
// readiness or liveness checks, and reports their conjunction.
//
// Components obtain a Condition handle once and report through it from any
// goroutine. A registry is healthy when every condition it knows is OK; an
// empty registry is healthy.
package health

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Registry holds the conditions of one kind of health
type Registry struct {
	kind string

	mu     sync.Mutex
	checks map[string]bool
}

// NewRegistry creates an empty registry. kind names it in logs and metrics.
func NewRegistry(kind string) *Registry {
	return &Registry{
		kind:   kind,
		checks: make(map[string]bool),
	}
}

// Kind returns the name the registry was created with
func (r *Registry) Kind() string {
	return r.kind
}

// Condition registers name and returns a handle to it. The condition starts
// out failing; registering an existing name resets it to failing and both
// handles then refer to the same condition.
func (r *Registry) Condition(name string) Condition {
	c := Condition{name: name, registry: r}
	c.ReportFailure()
	return c
}

func (r *Registry) put(name string, ok bool) {
	r.mu.Lock()
	r.checks[name] = ok
	r.mu.Unlock()
}

// Snapshot is the state of a registry at one instant
type Snapshot struct {
	// OK is true when no condition is failing
	OK bool `json:"ok"`
	// FailingChecks names the failing conditions in lexicographic order
	FailingChecks []string `json:"failing_checks"`
}

// Snapshot reports the current state of every condition
func (r *Registry) Snapshot() Snapshot {
	failing := []string{}

	r.mu.Lock()
	for name, ok := range r.checks {
		if !ok {
			failing = append(failing, name)
		}
	}
	r.mu.Unlock()

	slices.Sort(failing)

	return Snapshot{
		OK:            len(failing) == 0,
		FailingChecks: failing,
	}
}

// conditions copies the current values
func (r *Registry) conditions() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]bool, len(r.checks))
	for name, ok := range r.checks {
		out[name] = ok
	}
	return out
}

// Condition is a handle to one named condition. Copies refer to the same
// condition and may be used concurrently.
type Condition struct {
	name     string
	registry *Registry
}

// Name returns the condition name
func (c Condition) Name() string {
	return c.name
}

// ReportOK marks the condition as passing
func (c Condition) ReportOK() {
	c.registry.put(c.name, true)
}

// ReportFailure marks the condition as failing
func (c Condition) ReportFailure() {
	c.registry.put(c.name, false)
}

// Report marks the condition as passing when ok is true and failing otherwise
func (c Condition) Report(ok bool) {
	c.registry.put(c.name, ok)
}
