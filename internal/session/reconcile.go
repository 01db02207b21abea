package session

import (
	"context"
	"fmt"

	"classaudio/internal/logging"
	"classaudio/internal/notify"
)

// Action is what reconciliation did with the cached session id.
type Action string

const (
	// ActionAdopted means no id was cached and the backend's id was stored.
	ActionAdopted Action = "adopted"
	// ActionUnchanged means the cached id matched the backend.
	ActionUnchanged Action = "unchanged"
	// ActionInvalidated means the backend restarted and the cache was wiped.
	ActionInvalidated Action = "invalidated"
	// ActionSkipped means the backend reported no session id.
	ActionSkipped Action = "skipped"
)

// Outcome reports the result of Reconcile.
type Outcome struct {
	Action          Action
	PreviousID      string
	SessionID       string
	RecordingActive bool
	// Restored is true when recording was resumed locally because the
	// backend was already capturing.
	Restored bool
}

// Reconcile checks backend health, compares the backend's session id with the
// cached one and resumes recording when the backend is already capturing.
func (m *Manager) Reconcile(ctx context.Context) (Outcome, error) {
	m.control.Lock()
	defer m.control.Unlock()

	if err := m.backend.Health(ctx); err != nil {
		logging.WarnWithContext(m.logger, "backend health check failed", "backend_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "start the backend, then restart classaudio"),
			logging.String(logging.FieldImpact, "session state not reconciled"))
		m.exec(func() {
			m.notify(notify.New(notify.KindBackendUnavailable, notify.LevelError, "Backend unavailable", "%s", describe(err)))
		})
		return Outcome{}, fmt.Errorf("health check: %w", err)
	}

	status, err := m.backend.Status(ctx)
	if err != nil {
		m.requestFailed("fetch status", err)
		return Outcome{}, fmt.Errorf("fetch status: %w", err)
	}

	var out Outcome
	var closed bool
	m.exec(func() {
		if m.shutdown {
			closed = true
			return
		}
		m.notify(notify.New(notify.KindBackendReady, notify.LevelSuccess, "Backend ready", "connected to backend"))

		out = Outcome{
			PreviousID:      m.cache.SessionID(),
			SessionID:       status.SessionID,
			RecordingActive: status.RecordingActive,
		}
		switch {
		case status.SessionID == "":
			out.Action = ActionSkipped
		case out.PreviousID == "":
			out.Action = ActionAdopted
			m.cache.SetSessionID(m.ctx, status.SessionID)
		case out.PreviousID == status.SessionID:
			out.Action = ActionUnchanged
		default:
			out.Action = ActionInvalidated
			m.cache.Invalidate(m.ctx, status.SessionID)
			m.partial = ""
			m.view.Reset()
			m.notify(notify.New(notify.KindSessionNew, notify.LevelInfo, "New session",
				"backend restarted; cached records were cleared"))
		}

		if status.RecordingActive {
			out.Restored = !m.recording
			m.beginRecording()
			if out.Restored {
				m.notify(notify.New(notify.KindSessionRestored, notify.LevelInfo, "State restored",
					"backend is recording; reconnected automatically"))
			}
		}

		logging.WithContext(logging.WithSessionID(ctx, out.SessionID), m.logger).Info("session reconciled",
			logging.String("action", string(out.Action)),
			logging.String("previous_session_id", out.PreviousID),
			logging.Bool("recording_active", out.RecordingActive),
			logging.Bool("restored", out.Restored))
	})
	if closed {
		return Outcome{}, ErrShutdown
	}
	return out, nil
}
