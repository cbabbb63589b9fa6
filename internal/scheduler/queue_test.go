package scheduler

import (
	"fmt"
	"testing"
	"time"
)

func queued(id string, p Priority) *record {
	return newRecord(Spec{ID: id, Priority: p}, time.Now())
}

func TestReadyQueuePush(t *testing.T) {
	tests := []struct {
		name  string
		input []*record
		want  string
	}{
		{
			name:  "empty",
			input: nil,
			want:  "[]",
		},
		{
			name:  "descending priority",
			input: []*record{queued("l", PriorityLow), queued("h", PriorityHigh), queued("c", PriorityCritical)},
			want:  "[c h l]",
		},
		{
			name: "fifo within band",
			input: []*record{
				queued("n1", PriorityNormal),
				queued("n2", PriorityNormal),
				queued("n3", PriorityNormal),
			},
			want: "[n1 n2 n3]",
		},
		{
			name: "equal priority goes behind existing band",
			input: []*record{
				queued("h1", PriorityHigh),
				queued("l1", PriorityLow),
				queued("h2", PriorityHigh),
				queued("n1", PriorityNormal),
				queued("c1", PriorityCritical),
				queued("h3", PriorityHigh),
			},
			want: "[c1 h1 h2 h3 n1 l1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q readyQueue
			for _, rec := range tt.input {
				q.push(rec)
			}
			if got := fmt.Sprint(q.ids()); got != tt.want {
				t.Errorf("queue = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReadyQueuePopAndRemove(t *testing.T) {
	var q readyQueue
	if q.pop() != nil {
		t.Fatal("pop on empty queue should return nil")
	}

	q.push(queued("a", PriorityNormal))
	q.push(queued("b", PriorityHigh))
	q.push(queued("c", PriorityLow))

	if !q.remove("a") {
		t.Fatal("expected a to be removed")
	}
	if q.remove("a") {
		t.Error("second remove of a should report false")
	}
	if q.len() != 2 {
		t.Fatalf("expected 2 queued, got %d", q.len())
	}

	if head := q.pop(); head.task.ID != "b" {
		t.Errorf("expected b at head, got %s", head.task.ID)
	}
	if head := q.pop(); head.task.ID != "c" {
		t.Errorf("expected c at head, got %s", head.task.ID)
	}
	if q.len() != 0 {
		t.Errorf("expected empty queue, got %v", q.ids())
	}
}
