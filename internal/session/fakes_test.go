package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"classaudio/internal/backend"
	"classaudio/internal/cache"
	"classaudio/internal/notify"
	"classaudio/internal/record"
	"classaudio/internal/stream"
	"classaudio/internal/testsupport"
)

type fakeBackend struct {
	mu sync.Mutex

	healthErr error
	statusErr error
	startErr  error
	stopErr   error
	notesErr  error
	clearErr  error
	topicErr  error
	askErr    error

	status backend.Status
	notes  record.Notes
	topic  backend.TopicResult
	answer string
	// askGate, when set, blocks Ask until it is closed.
	askGate    chan struct{}
	askStarted chan struct{}

	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		status: backend.Status{SessionID: "session-1"},
		answer: "a measure of disorder",
		calls:  make(map[string]int),
	}
}

func (b *fakeBackend) record(op string) {
	b.mu.Lock()
	b.calls[op]++
	b.mu.Unlock()
}

func (b *fakeBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) Health(context.Context) error {
	b.record("health")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthErr
}

func (b *fakeBackend) Status(context.Context) (backend.Status, error) {
	b.record("status")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, b.statusErr
}

func (b *fakeBackend) Start(context.Context) (backend.ControlResult, error) {
	b.record("start")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return backend.ControlResult{}, b.startErr
	}
	b.status.RecordingActive = true
	return backend.ControlResult{Status: "started"}, nil
}

func (b *fakeBackend) Stop(context.Context) (backend.ControlResult, error) {
	b.record("stop")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopErr != nil {
		return backend.ControlResult{}, b.stopErr
	}
	b.status.RecordingActive = false
	return backend.ControlResult{Status: "stopped"}, nil
}

func (b *fakeBackend) FetchNotes(context.Context) (record.Notes, error) {
	b.record("notes")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notesErr != nil {
		return nil, b.notesErr
	}
	return b.notes.Clone(), nil
}

func (b *fakeBackend) ClearNotes(context.Context) error {
	b.record("clear")
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearErr
}

func (b *fakeBackend) SetTopic(_ context.Context, topic string) (backend.TopicResult, error) {
	b.record("topic")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topicErr != nil {
		return backend.TopicResult{}, b.topicErr
	}
	result := b.topic
	result.Topic = topic
	return result, nil
}

func (b *fakeBackend) Ask(ctx context.Context, question string) (string, error) {
	b.record("ask")
	b.mu.Lock()
	gate, started := b.askGate, b.askStarted
	b.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.answer, b.askErr
}

type recordingView struct {
	mu       sync.Mutex
	partials []string
	captions []record.Caption
	qa       []record.QA
	notes    []record.Notes
	resets   int
}

func (v *recordingView) Partial(text string) {
	v.mu.Lock()
	v.partials = append(v.partials, text)
	v.mu.Unlock()
}

func (v *recordingView) Caption(c record.Caption) {
	v.mu.Lock()
	v.captions = append(v.captions, c)
	v.mu.Unlock()
}

func (v *recordingView) QA(item record.QA) {
	v.mu.Lock()
	v.qa = append(v.qa, item)
	v.mu.Unlock()
}

func (v *recordingView) Notes(n record.Notes) {
	v.mu.Lock()
	v.notes = append(v.notes, n)
	v.mu.Unlock()
}

func (v *recordingView) Reset() {
	v.mu.Lock()
	v.resets++
	v.mu.Unlock()
}

type fixture struct {
	t        *testing.T
	backend  *fakeBackend
	store    *cache.MemoryStore
	cache    *cache.Cache
	sched    *testsupport.Scheduler
	dialer   *testsupport.Dialer
	notifier *testsupport.Notifier
	view     *recordingView
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, cache.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store *cache.MemoryStore) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		backend:  newFakeBackend(),
		store:    store,
		sched:    testsupport.NewScheduler(),
		dialer:   testsupport.NewDialer(),
		notifier: &testsupport.Notifier{},
		view:     &recordingView{},
	}
	f.cache = cache.New(context.Background(), store, nil)
	f.manager = New(Options{
		Backend:      f.backend,
		Cache:        f.cache,
		StreamURL:    "ws://backend.test/ws/captions",
		Dialer:       f.dialer,
		Policy:       stream.DefaultPolicy(),
		PollInterval: 5 * time.Second,
		Scheduler:    f.sched,
		Run:          func(fn func()) { fn() },
		Notifier:     f.notifier,
		View:         f.view,
	})
	t.Cleanup(f.manager.Shutdown)
	return f
}

func (f *fixture) start() {
	f.t.Helper()
	if err := f.manager.Start(context.Background()); err != nil {
		f.t.Fatalf("Start: %v", err)
	}
}

func (f *fixture) snapshot() Snapshot {
	return f.manager.Snapshot()
}

func (f *fixture) kinds() []notify.Kind {
	return f.notifier.Kinds()
}
