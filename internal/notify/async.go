package notify

import (
	"context"
	"sync"
	"time"
)

// Async delivers notices on background goroutines so slow sinks never hold up
// the caller. At most limit deliveries run at once; extra notices wait.
type Async struct {
	next Notifier
	sem  chan struct{}
	wg   sync.WaitGroup
}

// NewAsync wraps next. A limit below one means one delivery at a time.
func NewAsync(next Notifier, limit int) *Async {
	if limit < 1 {
		limit = 1
	}
	return &Async{next: next, sem: make(chan struct{}, limit)}
}

func (a *Async) Notify(ctx context.Context, n Notice) {
	if a == nil || a.next == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sem <- struct{}{}
		defer func() { <-a.sem }()
		a.next.Notify(ctx, n)
	}()
}

// Wait blocks until every accepted notice has been delivered.
func (a *Async) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}

type waiter interface {
	Wait()
}

// Flush waits up to timeout for asynchronous notifiers inside n to drain. It
// reports whether everything was delivered in time.
func Flush(n Notifier, timeout time.Duration) bool {
	w, ok := n.(waiter)
	if !ok {
		return true
	}
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
