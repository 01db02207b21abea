// Package schedule provides the cancellable delayed-task abstraction behind
// reconnect backoff and notes polling.
package schedule

import (
	"sync"
	"time"
)

// Task is a pending delayed call.
type Task interface {
	// Stop cancels the task. It reports whether the call was prevented.
	Stop() bool
}

// Scheduler runs functions after a delay and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Task
}

// System is the wall-clock scheduler backed by time.AfterFunc.
type System struct{}

// NewSystem returns the wall-clock scheduler.
func NewSystem() System { return System{} }

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// Slot holds at most one pending task. Arming a slot stops whatever it held
// before, so a component can never own two timers for the same purpose.
type Slot struct {
	mu   sync.Mutex
	task Task
}

// Arm replaces the pending task with a new one.
func (s *Slot) Arm(sched Scheduler, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil {
		s.task.Stop()
	}
	s.task = sched.AfterFunc(d, fn)
}

// Cancel stops the pending task, if any. It reports whether a task was held.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return false
	}
	s.task.Stop()
	s.task = nil
	return true
}

// Armed reports whether a task is held.
func (s *Slot) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task != nil
}

// Clear forgets the held task without stopping it. Call it from the task
// itself once it has fired.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.task = nil
	s.mu.Unlock()
}
