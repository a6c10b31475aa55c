package game

import (
	"container/heap"
	"sync"
	"time"
)

// scheduler sequences all of a table's timed work on a single background
// goroutine, so no two callbacks for the same table ever run concurrently
// with each other. Callbacks still take the table lock themselves, which
// serializes them against externally triggered actions.
type scheduler struct {
	mu      sync.Mutex
	tasks   taskQueue
	wake    chan struct{}
	quit    chan struct{}
	stopped bool
}

// scheduledTask is a cancellable handle for one pending callback.
type scheduledTask struct {
	when      time.Time
	fn        func()
	index     int
	cancelled bool
}

func newScheduler() *scheduler {
	s := &scheduler{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule queues fn to run after delay. The returned handle can be used to
// cancel the callback before it fires.
func (s *scheduler) Schedule(delay time.Duration, fn func()) *scheduledTask {
	task := &scheduledTask{when: time.Now().Add(delay), fn: fn}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		task.cancelled = true
		return task
	}
	heap.Push(&s.tasks, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return task
}

// Cancel prevents the task from firing. Cancelling an already fired or
// already cancelled task is a no-op.
func (s *scheduler) Cancel(task *scheduledTask) {
	if task == nil {
		return
	}
	s.mu.Lock()
	if !task.cancelled {
		task.cancelled = true
		if task.index >= 0 {
			heap.Remove(&s.tasks, task.index)
		}
	}
	s.mu.Unlock()
}

// Stop shuts the scheduler down. No callback fires after Stop returns the
// queue drained flag; pending tasks are discarded.
func (s *scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, task := range s.tasks {
		task.cancelled = true
	}
	s.tasks = nil
	s.mu.Unlock()
	close(s.quit)
}

func (s *scheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var next *scheduledTask
		if len(s.tasks) > 0 {
			next = s.tasks[0]
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-s.quit:
				return
			case <-s.wake:
			}
			continue
		}

		wait := time.Until(next.when)
		if wait > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			select {
			case <-s.quit:
				return
			case <-s.wake:
				continue
			case <-timer.C:
			}
		}

		s.runDue()
	}
}

// runDue pops and runs every task whose deadline has passed. Callbacks run
// outside the scheduler lock, one at a time.
func (s *scheduler) runDue() {
	now := time.Now()
	for {
		s.mu.Lock()
		if s.stopped || len(s.tasks) == 0 || s.tasks[0].when.After(now) {
			s.mu.Unlock()
			return
		}
		task := heap.Pop(&s.tasks).(*scheduledTask)
		cancelled := task.cancelled
		task.cancelled = true
		s.mu.Unlock()

		if !cancelled {
			task.fn()
		}
	}
}

// taskQueue is a min-heap ordered by deadline.
type taskQueue []*scheduledTask

func (q taskQueue) Len() int           { return len(q) }
func (q taskQueue) Less(i, j int) bool { return q[i].when.Before(q[j].when) }
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	task := x.(*scheduledTask)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[:n-1]
	return task
}
