package plan

import (
	"fmt"
	"path/filepath"

	"github.com/gammazero/toposort"
	"github.com/hashicorp/go-multierror"
)

// Validate checks the whole plan and reports every problem it finds.
func (p *Plan) Validate() error {
	var result *multierror.Error

	if p.MaxConcurrent < 0 {
		result = multierror.Append(result, fmt.Errorf("max_concurrent must not be negative, got %d", p.MaxConcurrent))
	}
	if len(p.Tasks) == 0 {
		result = multierror.Append(result, fmt.Errorf("plan has no tasks"))
	}

	seen := make(map[string]bool, len(p.Tasks))
	for i, t := range p.Tasks {
		if t.ID == "" {
			result = multierror.Append(result, fmt.Errorf("task #%d has no id", i+1))
			continue
		}
		if seen[t.ID] {
			result = multierror.Append(result, fmt.Errorf("task %q is defined more than once", t.ID))
		}
		seen[t.ID] = true
	}

	for _, t := range p.Tasks {
		if t.ID == "" {
			continue
		}
		if _, err := t.PriorityValue(); err != nil {
			result = multierror.Append(result, fmt.Errorf("task %q: %w", t.ID, err))
		}
		if len(t.Run) == 0 && t.Sleep == 0 && t.Fail == "" {
			result = multierror.Append(result, fmt.Errorf("task %q has nothing to do: set run, sleep or fail", t.ID))
		}
		if len(t.Run) > 0 && (t.Sleep > 0 || t.Fail != "") {
			result = multierror.Append(result, fmt.Errorf("task %q: run cannot be combined with sleep or fail", t.ID))
		}
		if t.Sleep < 0 || t.Timeout < 0 {
			result = multierror.Append(result, fmt.Errorf("task %q: durations must not be negative", t.ID))
		}
		for _, depID := range t.DependsOn {
			if depID == t.ID {
				result = multierror.Append(result, fmt.Errorf("task %q depends on itself", t.ID))
			} else if !seen[depID] {
				result = multierror.Append(result, fmt.Errorf("task %q depends on non-existent task %q", t.ID, depID))
			}
		}
	}

	if _, err := p.Order(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Order returns task IDs in a topological order of their dependencies.
// Dependencies on unknown tasks are ignored here; Validate reports them.
func (p *Plan) Order() ([]string, error) {
	known := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		known[t.ID] = true
	}

	var edges []toposort.Edge
	for _, t := range p.Tasks {
		if t.ID == "" {
			continue
		}
		linked := false
		for _, depID := range t.DependsOn {
			if known[depID] && depID != t.ID {
				// Edge (depID, taskID) means depID must come before taskID
				edges = append(edges, toposort.Edge{depID, t.ID})
				linked = true
			}
		}
		if !linked {
			edges = append(edges, toposort.Edge{nil, t.ID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("plan contains a dependency cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// ResolveDir returns the working directory for a task's command.
func (p *Plan) ResolveDir(t Task) string {
	switch {
	case t.Dir == "":
		return p.Dir
	case filepath.IsAbs(t.Dir) || p.Dir == "":
		return t.Dir
	default:
		return filepath.Join(p.Dir, t.Dir)
	}
}

func dirOf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	return filepath.Dir(abs)
}
