package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/record"
	"classaudio/internal/schedule"
)

// Hooks receive the connection's outputs. All hooks run on the owner's event
// loop, inside Handle.
type Hooks struct {
	Partial  func(text string)
	Accurate func(caption record.Caption)
	Notice   func(n notify.Notice)
	// Recording reports whether automatic reconnection is permitted.
	Recording func() bool
}

// Policy holds the reconnect and heartbeat parameters.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	HeartbeatStale time.Duration
}

// DefaultPolicy is five attempts from 1s doubling to a 10s cap, with a 60s
// heartbeat staleness threshold.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		HeartbeatStale: 60 * time.Second,
	}
}

// Delay returns the wait before reconnect attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Options configures a Connection.
type Options struct {
	URL       string
	Dialer    Dialer
	Scheduler schedule.Scheduler
	// Dispatch queues an event for the owner's event loop.
	Dispatch func(Event)
	// Run executes blocking work (dialing). Production passes a goroutine
	// launcher; tests may run inline.
	Run    func(func())
	Policy Policy
	Hooks  Hooks
	Logger *slog.Logger
}

// Connection is the caption stream state machine. It is not safe for
// concurrent use; the owner calls it from one event loop.
type Connection struct {
	url      string
	dialer   Dialer
	sched    schedule.Scheduler
	dispatch func(Event)
	run      func(func())
	policy   Policy
	hooks    Hooks
	logger   *slog.Logger

	state         State
	attempts      int
	lastHeartbeat time.Time
	gen           uint64
	transport     Transport
	retry         schedule.Slot
	ctx           context.Context
	cancel        context.CancelFunc
}

// New constructs an idle connection.
func New(opts Options) *Connection {
	if opts.Run == nil {
		opts.Run = func(fn func()) { go fn() }
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.NewSystem()
	}
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Hooks.Recording == nil {
		opts.Hooks.Recording = func() bool { return false }
	}
	return &Connection{
		url:      opts.URL,
		dialer:   opts.Dialer,
		sched:    opts.Scheduler,
		dispatch: opts.Dispatch,
		run:      opts.Run,
		policy:   opts.Policy,
		hooks:    opts.Hooks,
		logger:   logging.NewComponentLogger(opts.Logger, "stream"),
	}
}

// State returns the current state.
func (c *Connection) State() State { return c.state }

// Attempts returns the reconnect attempts spent since the last successful open.
func (c *Connection) Attempts() int { return c.attempts }

// LastHeartbeat returns when the last ping (or successful open) was seen.
func (c *Connection) LastHeartbeat() time.Time { return c.lastHeartbeat }

// RetryPending reports whether a reconnect timer is armed.
func (c *Connection) RetryPending() bool { return c.retry.Armed() }

// Open starts connecting unless a connection is already open or in progress.
// A pending reconnect is replaced by an immediate attempt with a fresh budget.
func (c *Connection) Open() {
	if c.state == StateOpen || c.state == StateConnecting {
		return
	}
	c.retry.Cancel()
	c.attempts = 0
	c.dial()
}

// Close tears the connection down without reconnecting.
func (c *Connection) Close() {
	c.retry.Cancel()
	c.gen++
	c.stopDial()
	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			c.logger.Debug("transport close returned error", logging.Error(err))
		}
		c.transport = nil
	}
	c.attempts = 0
	if c.state == StateIdle || c.state == StateClosed {
		return
	}
	c.transition(StateClosed, notify.New(notify.KindDisconnected, notify.LevelInfo, "Disconnected", "caption stream closed"))
}

// CheckHeartbeat logs when the stream is open but no ping arrived within the
// staleness threshold. It reports whether the stream is stale. Staleness
// never triggers a reconnect; only the transport's own close does.
func (c *Connection) CheckHeartbeat(now time.Time) bool {
	if c.state != StateOpen || c.lastHeartbeat.IsZero() {
		return false
	}
	silence := now.Sub(c.lastHeartbeat)
	if silence <= c.policy.HeartbeatStale {
		return false
	}
	logging.WarnWithContext(c.logger, "caption stream heartbeat stale", "heartbeat_stale",
		logging.Duration("silence", silence),
		logging.Duration("threshold", c.policy.HeartbeatStale),
		logging.String(logging.FieldConnState, c.state.String()),
		logging.String(logging.FieldErrorHint, "restart recording if captions stopped arriving"),
		logging.String(logging.FieldImpact, "captions may be delayed"))
	return true
}

// Handle applies one event. Events from an earlier generation are ignored.
func (c *Connection) Handle(ev Event) {
	if ev.generation() != c.gen {
		if opened, ok := ev.(Opened); ok && opened.Transport != nil {
			_ = opened.Transport.Close()
		}
		c.logger.Debug("ignoring stale stream event",
			logging.Int64("event_gen", int64(ev.generation())),
			logging.Int64("current_gen", int64(c.gen)))
		return
	}
	switch e := ev.(type) {
	case Opened:
		c.handleOpened(e)
	case OpenFailed:
		if c.state != StateConnecting {
			return
		}
		c.stopDial()
		c.lost(&TransportError{Op: "dial", Err: e.Err})
	case Closed:
		if c.state != StateOpen {
			return
		}
		c.transport = nil
		c.lost(&TransportError{Op: "closed", Err: e.Err})
	case FrameReceived:
		c.handleFrame(e.Data)
	case RetryDue:
		if c.state != StateReconnecting {
			return
		}
		c.retry.Clear()
		c.dial()
	}
}

func (c *Connection) dial() {
	c.gen++
	gen := c.gen
	c.stopDial()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	ctx := c.ctx

	c.transition(StateConnecting, notify.New(notify.KindConnecting, notify.LevelInfo, "Connecting", "opening caption stream"))

	url, dialer, dispatch := c.url, c.dialer, c.dispatch
	c.run(func() {
		transport, err := dialer.Dial(ctx, url)
		if err != nil {
			dispatch(OpenFailed{Gen: gen, Err: err})
			return
		}
		dispatch(Opened{Gen: gen, Transport: transport})
	})
}

func (c *Connection) stopDial() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Connection) handleOpened(e Opened) {
	if c.state != StateConnecting || e.Transport == nil {
		if e.Transport != nil {
			_ = e.Transport.Close()
		}
		return
	}
	c.transport = e.Transport
	c.attempts = 0
	c.lastHeartbeat = c.sched.Now()
	c.transition(StateOpen, notify.New(notify.KindConnected, notify.LevelSuccess, "Connected", "caption stream open"))

	gen, dispatch := c.gen, c.dispatch
	e.Transport.Listen(
		func(data []byte) { dispatch(FrameReceived{Gen: gen, Data: data}) },
		func(err error) { dispatch(Closed{Gen: gen, Err: err}) },
	)
}

// lost handles an unexpected transport loss or failed dial.
func (c *Connection) lost(cause error) {
	if !c.hooks.Recording() {
		c.attempts = 0
		c.transition(StateClosed, notify.New(notify.KindDisconnected, notify.LevelWarning, "Disconnected", "caption stream lost"))
		return
	}
	if c.attempts >= c.policy.MaxAttempts {
		spent := c.attempts
		c.attempts = 0
		logging.ErrorWithContext(c.logger, "caption stream reconnect exhausted", "stream_reconnect_failed",
			logging.Error(cause),
			logging.Int(logging.FieldAttempt, spent),
			logging.String(logging.FieldErrorHint, "check the backend, then stop and start recording"))
		c.transition(StateClosed, notify.New(notify.KindReconnectFailed, notify.LevelError,
			"Reconnect failed", "caption stream lost after %d attempts; restart recording to retry", spent))
		return
	}

	c.attempts++
	delay := c.policy.Delay(c.attempts)
	gen, dispatch := c.gen, c.dispatch
	c.retry.Arm(c.sched, delay, func() { dispatch(RetryDue{Gen: gen}) })

	logging.WarnWithContext(c.logger, "caption stream lost, scheduling reconnect", "stream_reconnect",
		logging.Error(cause),
		logging.Int(logging.FieldAttempt, c.attempts),
		logging.Duration("delay", delay),
		logging.String(logging.FieldImpact, "captions are paused until the stream reconnects"))
	c.transition(StateReconnecting, notify.New(notify.KindReconnecting, notify.LevelWarning,
		"Reconnecting", "attempt %d/%d in %s", c.attempts, c.policy.MaxAttempts, delay))
}

func (c *Connection) handleFrame(data []byte) {
	if c.state != StateOpen {
		return
	}
	frame, err := DecodeFrame(data)
	if err != nil {
		attrs := []logging.Attr{logging.Error(err)}
		var perr *ParseError
		if errors.As(err, &perr) {
			attrs = append(attrs, logging.String("raw", perr.Raw))
		}
		attrs = append(attrs, logging.String(logging.FieldImpact, "one frame dropped; stream stays open"))
		logging.WarnWithContext(c.logger, "dropping malformed caption frame", "frame_parse_failed", attrs...)
		return
	}
	switch frame.Type {
	case FramePing:
		c.lastHeartbeat = c.sched.Now()
	case FramePartial:
		if c.hooks.Partial != nil {
			c.hooks.Partial(frame.Text)
		}
	case FrameAccurate:
		if c.hooks.Accurate != nil {
			c.hooks.Accurate(frame.Caption())
		}
	default:
		c.logger.Debug("ignoring unknown frame type", logging.String("type", string(frame.Type)))
	}
}

func (c *Connection) transition(to State, n notify.Notice) {
	from := c.state
	c.state = to
	c.logger.Info("caption stream state changed",
		logging.String("from", from.String()),
		logging.String(logging.FieldConnState, to.String()),
		logging.Int(logging.FieldAttempt, c.attempts))
	if c.hooks.Notice != nil {
		n.At = c.sched.Now()
		c.hooks.Notice(n)
	}
}
