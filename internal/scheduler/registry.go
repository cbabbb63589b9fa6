package scheduler

import (
	"fmt"
)

// registry owns the canonical task records. It is not safe for concurrent
// use; the Scheduler serializes access through its mutex.
type registry struct {
	tasks      map[string]*record  // All tasks indexed by ID
	order      []string            // IDs in submission order
	dependents map[string][]string // Maps taskID -> tasks that depend on it, in submission order
}

func newRegistry() *registry {
	return &registry{
		tasks:      make(map[string]*record),
		dependents: make(map[string][]string),
	}
}

// add registers a record. Returns ErrDuplicateID if the ID already exists.
func (r *registry) add(rec *record) error {
	id := rec.task.ID
	if _, exists := r.tasks[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	r.tasks[id] = rec
	r.order = append(r.order, id)

	// Dependents are indexed even for IDs that are not registered yet, so a
	// later submission with that ID can still release them.
	for _, depID := range rec.task.Dependencies {
		r.dependents[depID] = append(r.dependents[depID], id)
	}

	return nil
}

func (r *registry) get(id string) (*record, bool) {
	rec, ok := r.tasks[id]
	return rec, ok
}

// satisfied reports whether every dependency of rec maps to a COMPLETED task.
// Unknown dependencies are never satisfied.
func (r *registry) satisfied(rec *record) bool {
	for depID := range rec.deps.Items() {
		dep, exists := r.tasks[depID]
		if !exists || dep.task.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// unblocked returns the PENDING dependents of id whose full dependency set is
// now satisfied.
func (r *registry) unblocked(id string) []*record {
	var ready []*record
	for _, depID := range r.dependents[id] {
		rec, ok := r.tasks[depID]
		if !ok || rec.task.Status != StatusPending {
			continue
		}
		if r.satisfied(rec) {
			ready = append(ready, rec)
		}
	}
	return ready
}

// each calls fn for every record in submission order.
func (r *registry) each(fn func(*record)) {
	for _, id := range r.order {
		fn(r.tasks[id])
	}
}

func (r *registry) len() int {
	return len(r.order)
}
