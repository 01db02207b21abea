package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"classaudio/internal/config"
)

type ntfyRecorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (r *ntfyRecorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, string(body))
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *ntfyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newNtfy(t *testing.T, window int) (*Ntfy, *ntfyRecorder) {
	t.Helper()
	rec := &ntfyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	n := NewNtfy(config.Notifications{NtfyTopic: srv.URL + "/lectures", RequestTimeout: 2, DedupWindowSeconds: window}, nil)
	if n == nil {
		t.Fatal("expected ntfy notifier")
	}
	return n, rec
}

func TestNewNtfyNilWithoutTopic(t *testing.T) {
	if NewNtfy(config.Notifications{}, nil) != nil {
		t.Fatal("expected nil notifier without topic")
	}
}

func TestNtfyPushesOnlyWarningsAndErrors(t *testing.T) {
	n, rec := newNtfy(t, 0)
	ctx := context.Background()
	n.Notify(ctx, New(KindConnected, LevelSuccess, "Connected", "caption stream open"))
	n.Notify(ctx, New(KindNotesUpdated, LevelInfo, "Notes", "2 batches"))
	n.Notify(ctx, New(KindReconnectFailed, LevelError, "Reconnect failed", "gave up after %d attempts", 5))

	if rec.count() != 1 {
		t.Fatalf("expected 1 push, got %d", rec.count())
	}
	req := rec.requests[0]
	if req.Header.Get("Title") != "ClassAudio - Reconnect failed" {
		t.Fatalf("unexpected title %q", req.Header.Get("Title"))
	}
	if req.Header.Get("Priority") != "high" {
		t.Fatalf("expected high priority for errors, got %q", req.Header.Get("Priority"))
	}
	if req.Header.Get("Tags") != "classaudio,reconnect_failed" {
		t.Fatalf("unexpected tags %q", req.Header.Get("Tags"))
	}
	if rec.bodies[0] != "gave up after 5 attempts" {
		t.Fatalf("unexpected body %q", rec.bodies[0])
	}
}

func TestNtfyDeduplicatesWithinWindow(t *testing.T) {
	n, rec := newNtfy(t, 60)
	ctx := context.Background()
	notice := New(KindNotesFailed, LevelWarning, "Notes", "fetch failed")
	n.Notify(ctx, notice)
	n.Notify(ctx, notice)
	n.Notify(ctx, New(KindNotesFailed, LevelWarning, "Notes", "different message"))
	if rec.count() != 2 {
		t.Fatalf("expected duplicate suppressed, got %d pushes", rec.count())
	}
}

func TestConsoleWritesPlainLinesWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Notify(context.Background(), New(KindReconnecting, LevelWarning, "Reconnecting", "attempt %d/%d", 2, 5))
	got := buf.String()
	if got != "[warning] Reconnecting: attempt 2/5\n" {
		t.Fatalf("unexpected console line %q", got)
	}
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	var a, b int
	m := Multi(Func(func(context.Context, Notice) { a++ }), nil, Func(func(context.Context, Notice) { b++ }))
	m.Notify(context.Background(), Notice{})
	if a != 1 || b != 1 {
		t.Fatalf("expected both notifiers called, got %d %d", a, b)
	}
	if _, ok := Multi(nil).(noop); !ok {
		t.Fatal("expected noop for no notifiers")
	}
}

func TestFromConfigWithoutTopicIsConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	n := FromConfig(&cfg, NewConsole(&buf), nil)
	n.Notify(context.Background(), New(KindCleared, LevelSuccess, "", "cache cleared"))
	if !strings.Contains(buf.String(), "cache cleared") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}

func TestAsyncDeliversInBackgroundAndFlushes(t *testing.T) {
	n, rec := newNtfy(t, 0)
	async := NewAsync(n, 2)
	notifier := Multi(Func(func(context.Context, Notice) {}), async)

	for i := 0; i < 3; i++ {
		notifier.Notify(context.Background(), New(KindRequestFailed, LevelError, "Request failed", "attempt %d", i))
	}
	if !Flush(notifier, 5*time.Second) {
		t.Fatal("expected async deliveries to drain")
	}
	if rec.count() != 3 {
		t.Fatalf("expected three pushes, got %d", rec.count())
	}
}
