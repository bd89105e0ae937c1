// Package scheduler implements the single-threaded cooperative task loop that
// drives every periodic and deferred operation in the robot control core.
package scheduler

import (
	"sort"
	"time"
)

// TaskFunc is a unit of work run by the Scheduler. It receives its own Handle so
// that a task may cancel itself.
type TaskFunc func(handle *Handle)

// Handle identifies a queued task and allows it to be cancelled.
type Handle struct {
	uid       uint64
	scheduler *Scheduler
}

// Cancel removes the task referenced by this handle from the scheduler.
// Safe to call from within the task's own body.
func (h *Handle) Cancel() {
	h.scheduler.remove(h)
}

type queuedTask struct {
	handle    *Handle
	fn        TaskFunc
	fireMs    int64
	periodMs  int64
	repeating bool
	cancelled bool
	executing bool
}

// Scheduler is a single-threaded, cooperative task loop. It is not safe for
// concurrent use: every method must be called from the same goroutine that
// calls Run, typically from within a task callback.
type Scheduler struct {
	uidGen    uint64
	queue     []*queuedTask
	nowFunc   func() int64
	sleepFunc func(time.Duration)
}

// New returns an empty Scheduler using wall-clock time.
func New() *Scheduler {
	return &Scheduler{
		nowFunc:   func() int64 { return time.Now().UnixMilli() },
		sleepFunc: time.Sleep,
	}
}

// Delay queues fn to run once, delayMs milliseconds from now.
func (s *Scheduler) Delay(fn TaskFunc, delayMs int64) *Handle {
	return s.enqueue(fn, delayMs, 0, false)
}

// Interval queues fn to run repeatedly every periodMs milliseconds. The first
// activation fires immediately; subsequent activations are spaced by periodMs.
func (s *Scheduler) Interval(fn TaskFunc, periodMs int64) *Handle {
	return s.enqueue(fn, 0, periodMs, true)
}

func (s *Scheduler) enqueue(fn TaskFunc, delayMs, periodMs int64, repeating bool) *Handle {
	s.uidGen++
	handle := &Handle{uid: s.uidGen, scheduler: s}

	fireMs := s.nowFunc()
	if !repeating {
		fireMs += abs64(delayMs)
	}

	task := &queuedTask{
		handle:    handle,
		fn:        fn,
		fireMs:    fireMs,
		periodMs:  abs64(periodMs),
		repeating: repeating,
	}
	s.insert(task)
	return handle
}

// insert places task into the queue ordered by fireMs ascending; ties are broken
// by insertion order, so a burst of zero-delay tasks preserves FIFO order.
func (s *Scheduler) insert(task *queuedTask) {
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].fireMs > task.fireMs
	})
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = task
}

// remove cancels the task referenced by handle. A currently-executing task is
// flagged cancelled so Run drops it after the callback returns and skips any
// reschedule; any other task is removed immediately.
func (s *Scheduler) remove(handle *Handle) bool {
	for i, task := range s.queue {
		if task.handle.uid == handle.uid {
			if task.executing {
				task.cancelled = true
			} else {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
			}
			return true
		}
	}
	return false
}

// Len reports the number of tasks currently queued, including the one (if any)
// presently executing.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// Run drains the task queue, sleeping between activations as needed, and
// returns once the queue is empty. Queue new tasks before calling Run, or from
// within running tasks, to keep the loop alive.
func (s *Scheduler) Run() {
	for len(s.queue) > 0 {
		task := s.queue[0]

		if task.cancelled {
			s.queue = s.queue[1:]
			continue
		}

		if dt := task.fireMs - s.nowFunc(); dt > 0 {
			s.sleepFunc(time.Duration(dt) * time.Millisecond)
		}

		task.executing = true
		task.fn(task.handle)
		task.executing = false

		if task.repeating && !task.cancelled {
			task.fireMs = s.nowFunc() + task.periodMs
			s.insert(task)
		}

		s.queue = s.queue[1:]
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
