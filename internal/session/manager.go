package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"classaudio/internal/backend"
	"classaudio/internal/cache"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/poll"
	"classaudio/internal/record"
	"classaudio/internal/schedule"
	"classaudio/internal/stream"
	"classaudio/internal/view"
)

// Backend is the subset of the backend client the manager drives.
type Backend interface {
	Health(ctx context.Context) error
	Status(ctx context.Context) (backend.Status, error)
	Start(ctx context.Context) (backend.ControlResult, error)
	Stop(ctx context.Context) (backend.ControlResult, error)
	FetchNotes(ctx context.Context) (record.Notes, error)
	ClearNotes(ctx context.Context) error
	SetTopic(ctx context.Context, topic string) (backend.TopicResult, error)
	Ask(ctx context.Context, question string) (string, error)
}

// Options wires a Manager.
type Options struct {
	Backend   Backend
	Cache     *cache.Cache
	StreamURL string
	Dialer    stream.Dialer
	Policy    stream.Policy
	// PollInterval defaults to poll.DefaultInterval.
	PollInterval time.Duration
	Scheduler    schedule.Scheduler
	// Run executes blocking background work such as dialing and polling.
	// It defaults to starting a goroutine.
	Run      func(func())
	Notifier notify.Notifier
	View     view.View
	Logger   *slog.Logger
}

// Manager owns the session state. Its exported methods are safe to call from
// any goroutine except from inside a View or Notifier callback.
type Manager struct {
	backend  Backend
	cache    *cache.Cache
	sched    schedule.Scheduler
	notifier notify.Notifier
	view     view.View
	logger   *slog.Logger
	ctx      context.Context

	conn   *stream.Connection
	poller *poll.Poller

	queueMu  sync.Mutex
	queue    []any
	draining bool

	control sync.Mutex

	// Fields below are touched only by handle.
	recording bool
	topic     string
	shutdown  bool
	partial   string
}

// call runs fn on the event loop and closes done afterwards.
type call struct {
	fn   func()
	done chan struct{}
}

// New builds an idle manager.
func New(opts Options) *Manager {
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.NewSystem()
	}
	if opts.Run == nil {
		opts.Run = func(fn func()) { go fn() }
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop()
	}
	if opts.View == nil {
		opts.View = view.Nop{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(context.Background(), cache.NewMemoryStore(), opts.Logger)
	}

	m := &Manager{
		backend:  opts.Backend,
		cache:    opts.Cache,
		sched:    opts.Scheduler,
		notifier: opts.Notifier,
		view:     opts.View,
		logger:   logging.NewComponentLogger(opts.Logger, "session"),
		ctx:      context.Background(),
	}

	m.conn = stream.New(stream.Options{
		URL:       opts.StreamURL,
		Dialer:    opts.Dialer,
		Scheduler: opts.Scheduler,
		Dispatch:  func(ev stream.Event) { m.Dispatch(ev) },
		Run:       opts.Run,
		Policy:    opts.Policy,
		Logger:    opts.Logger,
		Hooks: stream.Hooks{
			Partial:   m.onPartial,
			Accurate:  m.onAccurate,
			Notice:    m.notify,
			Recording: func() bool { return m.recording },
		},
	})

	m.poller = poll.New(poll.Options{
		Fetcher:   poll.FetcherFunc(m.fetchNotes),
		Scheduler: opts.Scheduler,
		Interval:  opts.PollInterval,
		Dispatch:  func(ev poll.Event) { m.Dispatch(ev) },
		Run:       opts.Run,
		Logger:    opts.Logger,
		Hooks: poll.Hooks{
			Tick:    func(now time.Time) { m.conn.CheckHeartbeat(now) },
			Fetched: m.onNotes,
			Failed:  m.onNotesFailed,
		},
	})
	return m
}

// Dispatch queues an event and, unless another caller is already draining the
// queue, applies queued events in order before returning.
func (m *Manager) Dispatch(ev any) {
	m.queueMu.Lock()
	m.queue = append(m.queue, ev)
	if m.draining {
		m.queueMu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 {
		next := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.queueMu.Unlock()
		m.handle(next)
		m.queueMu.Lock()
	}
	m.draining = false
	m.queueMu.Unlock()
}

// exec runs fn on the event loop and waits for it.
func (m *Manager) exec(fn func()) {
	done := make(chan struct{})
	m.Dispatch(call{fn: fn, done: done})
	<-done
}

func (m *Manager) handle(ev any) {
	if c, ok := ev.(call); ok {
		c.fn()
		close(c.done)
		return
	}
	if m.shutdown {
		m.logger.Debug("ignoring event after shutdown", logging.String("event", eventName(ev)))
		return
	}
	switch e := ev.(type) {
	case stream.Event:
		m.conn.Handle(e)
	case poll.Event:
		m.poller.Handle(e)
	default:
		m.logger.Warn("unhandled session event", logging.String("event", eventName(ev)))
	}
}

func eventName(ev any) string {
	switch ev.(type) {
	case stream.Opened:
		return "stream_opened"
	case stream.OpenFailed:
		return "stream_open_failed"
	case stream.Closed:
		return "stream_closed"
	case stream.FrameReceived:
		return "stream_frame"
	case stream.RetryDue:
		return "stream_retry_due"
	case poll.Tick:
		return "poll_tick"
	case poll.Result:
		return "poll_result"
	case call:
		return "call"
	default:
		return "unknown"
	}
}

// Shutdown cancels the reconnect and poll timers and closes the stream. Events
// delivered afterwards are ignored. The backend keeps recording.
func (m *Manager) Shutdown() {
	m.exec(func() {
		if m.shutdown {
			return
		}
		m.conn.Close()
		m.poller.Stop()
		m.shutdown = true
		m.logger.Info("session manager shut down",
			logging.Bool("recording", m.recording),
			logging.Int("poll_fetches", m.poller.Fetches()))
	})
}

// Snapshot describes the manager's current state.
type Snapshot struct {
	Recording      bool
	Connection     stream.State
	Attempts       int
	RetryPending   bool
	Polling        bool
	PollFetches    int
	Topic          string
	Partial        string
	Cache          cache.Summary
	ShutDown       bool
	LastPersistErr error
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	var s Snapshot
	m.exec(func() {
		s = Snapshot{
			Recording:      m.recording,
			Connection:     m.conn.State(),
			Attempts:       m.conn.Attempts(),
			RetryPending:   m.conn.RetryPending(),
			Polling:        m.poller.Active(),
			PollFetches:    m.poller.Fetches(),
			Topic:          m.topic,
			Partial:        m.partial,
			Cache:          m.cache.Summary(),
			ShutDown:       m.shutdown,
			LastPersistErr: m.cache.Err(),
		}
	})
	return s
}

// Cache exposes the underlying record cache for read-only views.
func (m *Manager) Cache() *cache.Cache { return m.cache }

func (m *Manager) notify(n notify.Notice) {
	if n.At.IsZero() {
		n.At = m.sched.Now()
	}
	m.logger.Debug("notice",
		logging.String("kind", string(n.Kind)),
		logging.String("level", string(n.Level)),
		logging.String("message", n.Message))
	m.notifier.Notify(m.ctx, n)
}

func (m *Manager) onPartial(text string) {
	m.partial = text
	m.view.Partial(text)
}

func (m *Manager) onAccurate(caption record.Caption) {
	if caption.Timestamp == "" {
		caption.Timestamp = record.Clock(m.sched.Now())
	}
	m.partial = ""
	m.cache.AppendCaption(m.ctx, caption)
	m.view.Caption(caption)
}
