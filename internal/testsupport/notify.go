package testsupport

import (
	"context"
	"sync"

	"classaudio/internal/notify"
)

// Notifier records every notice it receives.
type Notifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (n *Notifier) Notify(_ context.Context, notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// Notices returns a copy of the recorded notices.
func (n *Notifier) Notices() []notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notice(nil), n.notices...)
}

// Kinds returns the recorded notice kinds in order.
func (n *Notifier) Kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, len(n.notices))
	for i, notice := range n.notices {
		out[i] = notice.Kind
	}
	return out
}

// Count returns how many notices of kind were recorded.
func (n *Notifier) Count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, notice := range n.notices {
		if notice.Kind == kind {
			count++
		}
	}
	return count
}

// Reset forgets recorded notices.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.notices = nil
	n.mu.Unlock()
}
