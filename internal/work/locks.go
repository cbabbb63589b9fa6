package work

import (
	"context"
	"slices"
	"sync"

	"github.com/hashicorp/go-set/v3"
	"golang.org/x/sync/semaphore"
)

// LockSet provides named mutual exclusion between tasks. Tasks that declare a
// common lock name never run their work at the same time, while tasks with
// disjoint names proceed concurrently.
//
// A task waiting on a lock already occupies a scheduler slot, so waits honour
// the work context.
type LockSet struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewLockSet creates an empty LockSet.
func NewLockSet() *LockSet {
	return &LockSet{
		locks: make(map[string]*semaphore.Weighted),
	}
}

func (l *LockSet) get(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[name]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[name] = sem
	}
	return sem
}

// normalize deduplicates and sorts names. Acquiring in a single global order
// rules out lock-order deadlocks between tasks.
func normalize(names []string) []string {
	sorted := set.From(names).Slice()
	slices.Sort(sorted)
	return sorted
}

// LockAll acquires every named lock and returns a function releasing them in
// reverse order. If ctx ends first, locks taken so far are released and
// ctx.Err() is returned.
func (l *LockSet) LockAll(ctx context.Context, names []string) (unlock func(), err error) {
	sorted := normalize(names)
	held := make([]*semaphore.Weighted, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, name := range sorted {
		sem := l.get(name)
		if err := sem.Acquire(ctx, 1); err != nil {
			release()
			return nil, err
		}
		held = append(held, sem)
	}
	return release, nil
}

// Len returns the number of distinct lock names seen so far.
func (l *LockSet) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
