package testsupport

import (
	"sort"
	"sync"
	"time"

	"classaudio/internal/schedule"
)

// Scheduler is a manual clock. Tasks fire only when Advance moves time past
// their deadline.
type Scheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	owner   *Scheduler
	at      time.Time
	delay   time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewScheduler starts the clock at a fixed instant.
func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)}
}

func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) schedule.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	task := &fakeTask{owner: s, at: s.now.Add(d), delay: d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Pending returns the delays of tasks that have neither fired nor been
// stopped, in scheduling order.
func (s *Scheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, task := range s.tasks {
		if !task.stopped && !task.fired {
			out = append(out, task.delay)
		}
	}
	return out
}

// Advance moves the clock forward, firing due tasks in deadline order. Tasks
// scheduled by a firing task run too if they fall inside the window.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.nextDueLocked(target)
		if due == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		due.fired = true
		if due.at.After(s.now) {
			s.now = due.at
		}
		s.mu.Unlock()
		due.fn()
	}
}

func (s *Scheduler) nextDueLocked(target time.Time) *fakeTask {
	var candidates []*fakeTask
	for _, task := range s.tasks {
		if task.stopped || task.fired || task.at.After(target) {
			continue
		}
		candidates = append(candidates, task)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].at.Equal(candidates[j].at) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].at.Before(candidates[j].at)
	})
	return candidates[0]
}

// Walk advances the clock in increments of step, calling settle after each
// increment. Owners whose timers re-arm from their event loop use it so a
// long advance still observes every period.
func (s *Scheduler) Walk(d, step time.Duration, settle func()) {
	if step <= 0 {
		step = d
	}
	for d > 0 {
		inc := step
		if d < inc {
			inc = d
		}
		s.Advance(inc)
		if settle != nil {
			settle()
		}
		d -= inc
	}
}
