package scheduler

// readyQueue holds admitted tasks ordered by non-increasing priority. Within a
// priority band tasks keep their admission order.
type readyQueue struct {
	items []*record
}

// push inserts rec before the first entry with a strictly lower priority, or
// appends it when there is none.
func (q *readyQueue) push(rec *record) {
	pos := len(q.items)
	for i, item := range q.items {
		if item.task.Priority < rec.task.Priority {
			pos = i
			break
		}
	}

	q.items = append(q.items, nil)
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = rec
}

// pop removes and returns the head of the queue.
func (q *readyQueue) pop() *record {
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return head
}

// remove drops the task with the given ID. Reports whether it was queued.
func (q *readyQueue) remove(id string) bool {
	for i, item := range q.items {
		if item.task.ID == id {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			return true
		}
	}
	return false
}

func (q *readyQueue) len() int {
	return len(q.items)
}

// ids returns the queued IDs from head to tail.
func (q *readyQueue) ids() []string {
	out := make([]string, len(q.items))
	for i, item := range q.items {
		out[i] = item.task.ID
	}
	return out
}
