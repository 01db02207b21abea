package testsupport

import (
	"context"
	"errors"
	"sync"

	"classaudio/internal/stream"
)

// ErrDialRefused is the default dial failure of Dialer.
var ErrDialRefused = errors.New("connection refused")

// Dialer is a scripted stream.Dialer. Each Dial consumes the next scripted
// outcome; once the script is exhausted every dial fails.
type Dialer struct {
	mu      sync.Mutex
	script  []error
	dials   int
	opened  []*Transport
	Succeed bool
}

// NewDialer returns a dialer whose dials succeed.
func NewDialer() *Dialer {
	return &Dialer{Succeed: true}
}

// Script queues dial outcomes; nil means success.
func (d *Dialer) Script(outcomes ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, outcomes...)
}

func (d *Dialer) Dial(ctx context.Context, url string) (stream.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	var err error
	switch {
	case len(d.script) > 0:
		err = d.script[0]
		d.script = d.script[1:]
	case !d.Succeed:
		err = ErrDialRefused
	}
	if err != nil {
		return nil, err
	}
	t := &Transport{}
	d.opened = append(d.opened, t)
	return t, nil
}

// Dials counts Dial calls.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Last returns the most recently opened transport.
func (d *Dialer) Last() *Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opened) == 0 {
		return nil
	}
	return d.opened[len(d.opened)-1]
}

// Transport is an in-memory stream.Transport driven by the test.
type Transport struct {
	mu        sync.Mutex
	onMessage func([]byte)
	onClose   func(error)
	closed    bool
}

func (t *Transport) Listen(onMessage func([]byte), onClose func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMessage = onMessage
	t.onClose = onClose
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Deliver pushes one inbound message.
func (t *Transport) Deliver(data string) {
	t.mu.Lock()
	fn := t.onMessage
	t.mu.Unlock()
	if fn != nil {
		fn([]byte(data))
	}
}

// Drop simulates the server ending the channel.
func (t *Transport) Drop(err error) {
	t.mu.Lock()
	fn := t.onClose
	t.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
