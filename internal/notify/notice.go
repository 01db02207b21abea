package notify

import (
	"context"
	"fmt"
	"time"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

func (l Level) rank() int {
	switch l {
	case LevelError:
		return 3
	case LevelWarning:
		return 2
	case LevelSuccess:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is as severe as other.
func (l Level) AtLeast(other Level) bool { return l.rank() >= other.rank() }

// Kind identifies what happened.
type Kind string

const (
	KindConnecting         Kind = "connecting"
	KindConnected          Kind = "connected"
	KindReconnecting       Kind = "reconnecting"
	KindReconnectFailed    Kind = "reconnect_failed"
	KindDisconnected       Kind = "disconnected"
	KindSessionNew         Kind = "session_new"
	KindSessionRestored    Kind = "session_restored"
	KindRecordingStarted   Kind = "recording_started"
	KindRecordingStopped   Kind = "recording_stopped"
	KindNotesUpdated       Kind = "notes_updated"
	KindNotesFailed        Kind = "notes_failed"
	KindRequestFailed      Kind = "request_failed"
	KindBackendReady       Kind = "backend_ready"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindTopicSet           Kind = "topic_set"
	KindQAFailed           Kind = "qa_failed"
	KindCleared            Kind = "cleared"
	KindExported           Kind = "exported"
)

// Notice is a single user-facing message.
type Notice struct {
	Kind    Kind
	Level   Level
	Title   string
	Message string
	At      time.Time
}

func (n Notice) String() string {
	if n.Title == "" {
		return n.Message
	}
	if n.Message == "" {
		return n.Title
	}
	return n.Title + ": " + n.Message
}

// Notifier receives notices. Implementations handle their own delivery
// failures.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// New builds a notice with the given kind and level.
func New(kind Kind, level Level, title, format string, args ...any) Notice {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Notice{Kind: kind, Level: level, Title: title, Message: msg}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type noop struct{}

func (noop) Notify(context.Context, Notice) {}

// Noop discards every notice.
func Noop() Notifier { return noop{} }

type multi []Notifier

func (m multi) Notify(ctx context.Context, n Notice) {
	for _, target := range m {
		target.Notify(ctx, n)
	}
}

func (m multi) Wait() {
	for _, target := range m {
		if w, ok := target.(waiter); ok {
			w.Wait()
		}
	}
}

// Multi fans notices out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	filtered := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	switch len(filtered) {
	case 0:
		return noop{}
	case 1:
		return filtered[0]
	default:
		return filtered
	}
}
