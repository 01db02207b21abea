package stream_test

import (
	"errors"
	"testing"
	"time"

	"classaudio/internal/notify"
	"classaudio/internal/record"
	"classaudio/internal/stream"
	"classaudio/internal/testsupport"
)

type harness struct {
	t         *testing.T
	conn      *stream.Connection
	sched     *testsupport.Scheduler
	dialer    *testsupport.Dialer
	notices   []notify.Notice
	queue     []stream.Event
	recording bool
	partials  []string
	accurate  []record.Caption
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		sched:     testsupport.NewScheduler(),
		dialer:    testsupport.NewDialer(),
		recording: true,
	}
	h.conn = stream.New(stream.Options{
		URL:       "ws://backend.test/ws/captions",
		Dialer:    h.dialer,
		Scheduler: h.sched,
		Dispatch:  func(ev stream.Event) { h.queue = append(h.queue, ev) },
		Run:       func(fn func()) { fn() },
		Policy:    stream.DefaultPolicy(),
		Hooks: stream.Hooks{
			Partial:   func(text string) { h.partials = append(h.partials, text) },
			Accurate:  func(c record.Caption) { h.accurate = append(h.accurate, c) },
			Notice:    func(n notify.Notice) { h.notices = append(h.notices, n) },
			Recording: func() bool { return h.recording },
		},
	})
	return h
}

func (h *harness) drain() {
	for len(h.queue) > 0 {
		ev := h.queue[0]
		h.queue = h.queue[1:]
		h.conn.Handle(ev)
	}
}

func (h *harness) advance(d time.Duration) {
	h.sched.Advance(d)
	h.drain()
}

func (h *harness) kinds() []notify.Kind {
	out := make([]notify.Kind, len(h.notices))
	for i, n := range h.notices {
		out[i] = n.Kind
	}
	return out
}

func (h *harness) count(kind notify.Kind) int {
	n := 0
	for _, notice := range h.notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

func (h *harness) open() *testsupport.Transport {
	h.t.Helper()
	h.conn.Open()
	h.drain()
	if h.conn.State() != stream.StateOpen {
		h.t.Fatalf("expected open state, got %s", h.conn.State())
	}
	return h.dialer.Last()
}

func TestPolicyDelaySequence(t *testing.T) {
	p := stream.DefaultPolicy()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, expected := range want {
		if got := p.Delay(i + 1); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, expected, got)
		}
	}
}

func TestOpenEmitsConnectingThenConnected(t *testing.T) {
	h := newHarness(t)
	h.open()

	kinds := h.kinds()
	if len(kinds) != 2 || kinds[0] != notify.KindConnecting || kinds[1] != notify.KindConnected {
		t.Fatalf("unexpected notices %v", kinds)
	}
	if !h.conn.LastHeartbeat().Equal(h.sched.Now()) {
		t.Fatalf("expected heartbeat to be stamped on open")
	}

	h.conn.Open()
	h.drain()
	if h.dialer.Dials() != 1 {
		t.Fatalf("expected open to be a no-op while open, dials=%d", h.dialer.Dials())
	}
}

func TestReconnectBackoffExhausts(t *testing.T) {
	h := newHarness(t)
	h.dialer.Succeed = false

	h.conn.Open()
	h.drain()

	var delays []time.Duration
	for i := 0; i < 10; i++ {
		pending := h.sched.Pending()
		if len(pending) == 0 {
			break
		}
		if len(pending) != 1 {
			t.Fatalf("expected a single pending retry, got %v", pending)
		}
		delays = append(delays, pending[0])
		h.advance(pending[0])
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d retries, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("retry %d: expected %s, got %s", i+1, want[i], delays[i])
		}
	}
	if h.dialer.Dials() != 6 {
		t.Fatalf("expected initial dial plus five retries, got %d", h.dialer.Dials())
	}
	if h.conn.State() != stream.StateClosed {
		t.Fatalf("expected closed after exhaustion, got %s", h.conn.State())
	}
	if h.conn.Attempts() != 0 {
		t.Fatalf("expected attempts reset, got %d", h.conn.Attempts())
	}
	if h.count(notify.KindReconnectFailed) != 1 {
		t.Fatalf("expected one reconnect_failed notice, got %v", h.kinds())
	}
	if h.count(notify.KindReconnecting) != 5 {
		t.Fatalf("expected five reconnecting notices, got %v", h.kinds())
	}

	h.advance(time.Minute)
	if h.dialer.Dials() != 6 {
		t.Fatalf("expected no dial after exhaustion, got %d", h.dialer.Dials())
	}
}

func TestSuccessfulReconnectResetsAttempts(t *testing.T) {
	h := newHarness(t)
	transport := h.open()

	h.dialer.Script(errors.New("refused"), nil)
	transport.Drop(errors.New("server went away"))
	h.drain()
	if h.conn.State() != stream.StateReconnecting || h.conn.Attempts() != 1 {
		t.Fatalf("expected reconnecting attempt 1, got %s/%d", h.conn.State(), h.conn.Attempts())
	}

	h.advance(time.Second)
	if h.conn.Attempts() != 2 {
		t.Fatalf("expected second attempt, got %d", h.conn.Attempts())
	}
	h.advance(2 * time.Second)
	if h.conn.State() != stream.StateOpen {
		t.Fatalf("expected reopen, got %s", h.conn.State())
	}
	if h.conn.Attempts() != 0 {
		t.Fatalf("expected attempts reset after open, got %d", h.conn.Attempts())
	}
}

func TestLossWhileNotRecordingCloses(t *testing.T) {
	h := newHarness(t)
	transport := h.open()
	h.recording = false

	transport.Drop(errors.New("reset"))
	h.drain()

	if h.conn.State() != stream.StateClosed {
		t.Fatalf("expected closed, got %s", h.conn.State())
	}
	if h.conn.RetryPending() {
		t.Fatalf("expected no retry while not recording")
	}
	if h.count(notify.KindDisconnected) != 1 {
		t.Fatalf("expected disconnected notice, got %v", h.kinds())
	}
}

func TestExplicitCloseCancelsRetry(t *testing.T) {
	h := newHarness(t)
	transport := h.open()

	transport.Drop(errors.New("reset"))
	h.drain()
	if !h.conn.RetryPending() {
		t.Fatalf("expected pending retry")
	}

	h.conn.Close()
	h.drain()
	if h.conn.RetryPending() {
		t.Fatalf("expected retry cancelled")
	}
	dials := h.dialer.Dials()
	h.advance(time.Minute)
	if h.dialer.Dials() != dials {
		t.Fatalf("expected no reconnect after close")
	}
	if h.conn.State() != stream.StateClosed {
		t.Fatalf("expected closed, got %s", h.conn.State())
	}
}

func TestExplicitCloseIgnoresLateTransportClose(t *testing.T) {
	h := newHarness(t)
	transport := h.open()

	h.conn.Close()
	if !transport.Closed() {
		t.Fatalf("expected transport closed")
	}
	notices := len(h.notices)

	transport.Drop(nil)
	h.drain()
	if h.conn.State() != stream.StateClosed || h.conn.RetryPending() {
		t.Fatalf("late close should be ignored, state=%s", h.conn.State())
	}
	if len(h.notices) != notices {
		t.Fatalf("expected no further notices, got %v", h.kinds()[notices:])
	}

	h.conn.Close()
	if len(h.notices) != notices {
		t.Fatalf("second close should not notify")
	}
}

func TestFramesRouteToHooks(t *testing.T) {
	h := newHarness(t)
	transport := h.open()

	transport.Deliver(`{"type":"partial","text":"entropy is"}`)
	transport.Deliver(`not json`)
	transport.Deliver(`{"text":"missing type"}`)
	transport.Deliver(`{"type":"mystery"}`)
	transport.Deliver(`{"type":"accurate","text":"Entropy is a measure.","timestamp":"09:00:05","no_speech_prob":0.01,"avg_logprob":-0.2}`)
	h.drain()

	if h.conn.State() != stream.StateOpen {
		t.Fatalf("malformed frames must not close the stream, got %s", h.conn.State())
	}
	if len(h.partials) != 1 || h.partials[0] != "entropy is" {
		t.Fatalf("unexpected partials %v", h.partials)
	}
	if len(h.accurate) != 1 || h.accurate[0].Text != "Entropy is a measure." || h.accurate[0].Timestamp != "09:00:05" {
		t.Fatalf("unexpected accurate captions %+v", h.accurate)
	}
}

func TestPingRefreshesHeartbeat(t *testing.T) {
	h := newHarness(t)
	transport := h.open()
	opened := h.conn.LastHeartbeat()

	h.sched.Advance(30 * time.Second)
	transport.Deliver(`{"type":"ping"}`)
	h.drain()
	if !h.conn.LastHeartbeat().After(opened) {
		t.Fatalf("expected heartbeat refreshed by ping")
	}
	if len(h.notices) != 2 {
		t.Fatalf("ping should not notify, got %v", h.kinds())
	}
}

func TestCheckHeartbeatOnlyLogs(t *testing.T) {
	h := newHarness(t)
	h.open()

	if h.conn.CheckHeartbeat(h.sched.Now().Add(59 * time.Second)) {
		t.Fatalf("expected fresh heartbeat")
	}
	if !h.conn.CheckHeartbeat(h.sched.Now().Add(61 * time.Second)) {
		t.Fatalf("expected stale heartbeat")
	}
	if h.conn.State() != stream.StateOpen || h.dialer.Dials() != 1 {
		t.Fatalf("stale heartbeat must not reconnect")
	}
}

func TestStaleGenerationIgnored(t *testing.T) {
	h := newHarness(t)
	h.open()

	h.conn.Handle(stream.Closed{Gen: 0, Err: errors.New("old")})
	h.conn.Handle(stream.RetryDue{Gen: 0})
	if h.conn.State() != stream.StateOpen {
		t.Fatalf("stale events must be ignored, got %s", h.conn.State())
	}
	if h.dialer.Dials() != 1 {
		t.Fatalf("stale retry must not dial")
	}
}

func TestOpenAfterExhaustionStartsFreshBudget(t *testing.T) {
	h := newHarness(t)
	h.dialer.Succeed = false
	h.conn.Open()
	h.drain()
	for len(h.sched.Pending()) > 0 {
		h.advance(h.sched.Pending()[0])
	}

	h.dialer.Succeed = true
	h.open()
	if h.conn.Attempts() != 0 {
		t.Fatalf("expected fresh attempts, got %d", h.conn.Attempts())
	}
}
