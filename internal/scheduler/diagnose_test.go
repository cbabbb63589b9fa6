package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDiagnoseHealthy(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	mustSubmit(t, s, Spec{ID: "a", Work: gatedWork("a", release, nil)})
	mustSubmit(t, s, Spec{ID: "b", DependsOn: []string{"a"}, Work: instantWork("b", nil)})
	mustSubmit(t, s, Spec{ID: "c", DependsOn: []string{"b"}, Work: instantWork("c", nil)})

	diag := s.Diagnose()
	if !diag.Healthy() {
		t.Fatalf("expected healthy diagnosis, got %+v", diag)
	}
}

func TestDiagnoseStranded(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	mustSubmit(t, s, Spec{ID: "broken", Work: func(context.Context) (any, error) {
		return nil, errors.New("nope")
	}})
	mustSubmit(t, s, Spec{ID: "cancelled", DependsOn: []string{"ghost"}, Work: instantWork("cancelled", nil)})
	waitAll(t, s)
	if err := s.Cancel("cancelled"); err != nil {
		t.Fatal(err)
	}

	mustSubmit(t, s, Spec{ID: "on-missing", DependsOn: []string{"ghost"}, Work: instantWork("x", nil)})
	mustSubmit(t, s, Spec{ID: "on-failed", DependsOn: []string{"broken"}, Work: instantWork("x", nil)})
	mustSubmit(t, s, Spec{ID: "on-cancelled", DependsOn: []string{"cancelled"}, Work: instantWork("x", nil)})
	mustSubmit(t, s, Spec{ID: "transitive", DependsOn: []string{"on-failed"}, Work: instantWork("x", nil)})

	diag := s.Diagnose()
	if diag.Healthy() {
		t.Fatal("expected unhealthy diagnosis")
	}
	if diag.Cycle != nil {
		t.Errorf("unexpected cycle: %v", diag.Cycle)
	}

	want := map[string]Blocker{
		"on-missing":   {ID: "ghost", Cause: CauseMissing},
		"on-failed":    {ID: "broken", Cause: CauseFailed},
		"on-cancelled": {ID: "cancelled", Cause: CauseCancelled},
		"transitive":   {ID: "on-failed", Cause: CauseStranded},
	}
	if len(diag.Stranded) != len(want) {
		t.Fatalf("expected %d stranded tasks, got %d: %+v", len(want), len(diag.Stranded), diag.Stranded)
	}
	for _, st := range diag.Stranded {
		exp, ok := want[st.Task.ID]
		if !ok {
			t.Errorf("unexpected stranded task %s", st.Task.ID)
			continue
		}
		if len(st.Blockers) != 1 || st.Blockers[0] != exp {
			t.Errorf("%s: blockers = %+v, want [%+v]", st.Task.ID, st.Blockers, exp)
		}
	}
}

func TestDiagnoseCycle(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	mustSubmit(t, s, Spec{ID: "a", DependsOn: []string{"c"}, Work: instantWork("a", nil)})
	mustSubmit(t, s, Spec{ID: "b", DependsOn: []string{"a"}, Work: instantWork("b", nil)})
	mustSubmit(t, s, Spec{ID: "c", DependsOn: []string{"b"}, Work: instantWork("c", nil)})

	diag := s.Diagnose()
	if diag.Cycle == nil {
		t.Fatal("expected a cycle to be reported")
	}
	if len(diag.Stranded) != 3 {
		t.Errorf("expected all three tasks stranded, got %d", len(diag.Stranded))
	}
}

func TestDiagnoseSelfDependency(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	mustSubmit(t, s, Spec{ID: "loop", DependsOn: []string{"loop"}, Work: instantWork("loop", nil)})

	diag := s.Diagnose()
	if diag.Cycle == nil {
		t.Fatal("expected a cycle to be reported")
	}
	if !strings.Contains(diag.Cycle.Error(), `task "loop" depends on itself`) {
		t.Errorf("unexpected cycle message: %v", diag.Cycle)
	}
	if len(diag.Stranded) != 1 || diag.Stranded[0].Blockers[0] != (Blocker{ID: "loop", Cause: CauseStranded}) {
		t.Errorf("expected loop stranded by itself, got %+v", diag.Stranded)
	}
}
