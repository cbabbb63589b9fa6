package plan

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/shoenig/test/must"

	"github.com/aristath/taskflow/internal/scheduler"
)

const samplePlan = `
max_concurrent: 2
tasks:
  - id: fetch
    sleep: 10ms
  - id: build
    name: Build
    priority: high
    depends_on: [fetch]
    run: ["make", "build"]
    dir: src
    timeout: 1m
    locks: [workspace]
  - id: lint
    priority: low
    depends_on: [fetch]
    fail: "lint errors"
  - id: ship
    priority: critical
    depends_on: [build, lint]
    sleep: 5ms
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	must.NoError(t, err)
	must.Eq(t, 2, p.MaxConcurrent)
	must.Len(t, 4, p.Tasks)

	build := p.Tasks[1]
	must.Eq(t, "Build", build.Name)
	must.Eq(t, []string{"make", "build"}, build.Run)
	must.Eq(t, time.Minute, build.Timeout)
	must.Eq(t, []string{"workspace"}, build.Locks)
	must.Eq(t, 10*time.Millisecond, p.Tasks[0].Sleep)

	prio, err := build.PriorityValue()
	must.NoError(t, err)
	must.Eq(t, scheduler.PriorityHigh, prio)

	must.NoError(t, p.Validate())
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte("   \n"))
	must.ErrorContains(t, err, "empty")

	_, err = Parse([]byte("tasks:\n  - id: a\n    sleeep: 1s\n"))
	must.ErrorContains(t, err, "sleeep")

	_, err = Parse([]byte("tasks:\n  - id: a\n    sleep: soon\n"))
	must.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []Task
		wantErrs []string
	}{
		{
			name: "valid chain",
			tasks: []Task{
				{ID: "a", Sleep: time.Millisecond},
				{ID: "b", DependsOn: []string{"a"}, Run: []string{"true"}},
			},
		},
		{
			name:     "no tasks",
			wantErrs: []string{"no tasks"},
		},
		{
			name: "collects every problem",
			tasks: []Task{
				{Sleep: time.Millisecond},
				{ID: "a", Sleep: time.Millisecond},
				{ID: "a", Sleep: time.Millisecond},
				{ID: "b", Priority: "urgent", Sleep: time.Millisecond},
				{ID: "c"},
				{ID: "d", DependsOn: []string{"ghost"}, Sleep: time.Millisecond},
				{ID: "e", Run: []string{"true"}, Fail: "x"},
			},
			wantErrs: []string{
				"task #1 has no id",
				`task "a" is defined more than once`,
				`unknown priority "urgent"`,
				`task "c" has nothing to do`,
				`non-existent task "ghost"`,
				"run cannot be combined",
			},
		},
		{
			name: "self dependency",
			tasks: []Task{
				{ID: "a", DependsOn: []string{"a"}, Sleep: time.Millisecond},
			},
			wantErrs: []string{"depends on itself"},
		},
		{
			name: "transitive cycle",
			tasks: []Task{
				{ID: "a", DependsOn: []string{"c"}, Sleep: time.Millisecond},
				{ID: "b", DependsOn: []string{"a"}, Sleep: time.Millisecond},
				{ID: "c", DependsOn: []string{"b"}, Sleep: time.Millisecond},
			},
			wantErrs: []string{"cycle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Plan{Tasks: tt.tasks}
			err := p.Validate()
			if len(tt.wantErrs) == 0 {
				must.NoError(t, err)
				return
			}
			must.Error(t, err)
			for _, want := range tt.wantErrs {
				must.StrContains(t, err.Error(), want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	must.NoError(t, err)

	order, err := p.Order()
	must.NoError(t, err)
	must.Len(t, 4, order)

	pos := func(id string) int { return slices.Index(order, id) }
	must.True(t, pos("fetch") < pos("build"))
	must.True(t, pos("fetch") < pos("lint"))
	must.True(t, pos("build") < pos("ship"))
	must.True(t, pos("lint") < pos("ship"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	must.NoError(t, os.WriteFile(path, []byte(samplePlan), 0644))

	p, err := Load(path)
	must.NoError(t, err)
	must.Eq(t, dir, p.Dir)
	must.Eq(t, filepath.Join(dir, "src"), p.ResolveDir(p.Tasks[1]))
	must.Eq(t, dir, p.ResolveDir(p.Tasks[0]))

	bad := filepath.Join(dir, "bad.yaml")
	must.NoError(t, os.WriteFile(bad, []byte("tasks:\n  - id: x\n"), 0644))
	_, err = Load(bad)
	must.ErrorContains(t, err, "nothing to do")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	must.Error(t, err)
}

func TestSpecs(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	must.NoError(t, err)

	var built []string
	specs, err := p.Specs(func(task Task) scheduler.WorkFunc {
		built = append(built, task.ID)
		return func(context.Context) (any, error) { return nil, nil }
	})
	must.NoError(t, err)
	must.Len(t, 4, specs)
	must.Eq(t, []string{"fetch", "build", "lint", "ship"}, built)
	must.Eq(t, scheduler.PriorityCritical, specs[3].Priority)
	must.Eq(t, scheduler.PriorityNormal, specs[0].Priority)
	must.Eq(t, []string{"build", "lint"}, specs[3].DependsOn)
	must.NotNil(t, specs[0].Work)

	p.Tasks[0].Priority = "whenever"
	_, err = p.Specs(func(Task) scheduler.WorkFunc { return nil })
	must.True(t, strings.Contains(err.Error(), `"fetch"`))
}
