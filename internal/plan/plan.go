// Package plan loads task plans from YAML files and turns them into scheduler
// submissions.
package plan

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aristath/taskflow/internal/scheduler"
)

// Task is one entry of a plan file.
type Task struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name,omitempty"`
	Priority  string        `yaml:"priority,omitempty"` // low, normal, high, critical
	DependsOn []string      `yaml:"depends_on,omitempty"`
	Run       []string      `yaml:"run,omitempty"`     // Subprocess argv
	Dir       string        `yaml:"dir,omitempty"`     // Working directory for Run, relative to the plan file
	Sleep     time.Duration `yaml:"sleep,omitempty"`   // Simulated work duration
	Fail      string        `yaml:"fail,omitempty"`    // Fail with this message after Sleep
	Timeout   time.Duration `yaml:"timeout,omitempty"` // Bounds the work, zero means none
	Locks     []string      `yaml:"locks,omitempty"`   // Named resources held exclusively while running
}

// Plan is a set of tasks plus optional scheduler overrides.
type Plan struct {
	MaxConcurrent int    `yaml:"max_concurrent,omitempty"`
	Tasks         []Task `yaml:"tasks"`

	// Dir is the directory the plan was loaded from. Relative task
	// directories resolve against it.
	Dir string `yaml:"-"`
}

// Parse decodes a plan from YAML bytes. It does not validate.
func Parse(data []byte) (*Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("plan: payload is empty")
	}

	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("plan: decode: %w", err)
	}
	return &p, nil
}

// Load reads, parses and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: read %s: %w", path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Dir = dirOf(path)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// PriorityValue returns the scheduler priority named by the task.
func (t Task) PriorityValue() (scheduler.Priority, error) {
	return scheduler.ParsePriority(t.Priority)
}

// Spec converts the task into a scheduler submission using work.
func (t Task) Spec(work scheduler.WorkFunc) (scheduler.Spec, error) {
	prio, err := t.PriorityValue()
	if err != nil {
		return scheduler.Spec{}, fmt.Errorf("task %q: %w", t.ID, err)
	}
	return scheduler.Spec{
		ID:        t.ID,
		Name:      t.Name,
		Priority:  prio,
		DependsOn: t.DependsOn,
		Work:      work,
	}, nil
}

// Specs converts every task in file order. workFor builds the work of each.
func (p *Plan) Specs(workFor func(Task) scheduler.WorkFunc) ([]scheduler.Spec, error) {
	specs := make([]scheduler.Spec, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		spec, err := t.Spec(workFor(t))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
