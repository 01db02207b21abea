package session

import (
	"context"
	"errors"
	"fmt"

	"classaudio/internal/backend"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/record"
)

// Start asks the backend to begin capture, then opens the caption stream and
// starts notes polling. Starting while already recording does nothing.
func (m *Manager) Start(ctx context.Context) error {
	m.control.Lock()
	defer m.control.Unlock()

	var recording, closed bool
	m.exec(func() { recording, closed = m.recording, m.shutdown })
	if closed {
		return ErrShutdown
	}
	if recording {
		m.logger.Debug("start ignored, already recording")
		return nil
	}

	result, err := m.backend.Start(ctx)
	if err != nil {
		m.requestFailed("start recording", err)
		return fmt.Errorf("start recording: %w", err)
	}
	m.logger.Info("backend capture started", logging.String("backend_status", result.Status))

	m.exec(func() {
		if m.shutdown {
			return
		}
		m.beginRecording()
		m.notify(notify.New(notify.KindRecordingStarted, notify.LevelSuccess, "Recording started", "capturing audio"))
	})
	return nil
}

// Stop asks the backend to end capture, closes the stream without
// reconnecting, halts polling and issues one final notes fetch. A failed
// backend stop is logged and otherwise treated as success.
func (m *Manager) Stop(ctx context.Context) error {
	m.control.Lock()
	defer m.control.Unlock()

	var closed bool
	m.exec(func() { closed = m.shutdown })
	if closed {
		return ErrShutdown
	}

	if _, err := m.backend.Stop(ctx); err != nil {
		logging.WarnWithContext(m.logger, "backend stop failed, stopping locally", "recording_stop_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the backend may still be capturing; check its status"),
			logging.String(logging.FieldImpact, "local session stopped regardless"))
	}

	m.exec(func() {
		wasRecording := m.recording
		m.recording = false
		m.conn.Close()
		m.poller.Stop()
		m.poller.Final(context.WithoutCancel(ctx))
		if wasRecording {
			m.notify(notify.New(notify.KindRecordingStopped, notify.LevelInfo, "Recording stopped", "audio capture ended"))
		}
	})
	return nil
}

// beginRecording sets the recording flag and brings the stream and poller up.
// Both are no-ops when already running.
func (m *Manager) beginRecording() {
	m.recording = true
	m.conn.Open()
	m.poller.Start()
}

func (m *Manager) fetchNotes(ctx context.Context) (record.Notes, error) {
	return m.backend.FetchNotes(ctx)
}

func (m *Manager) onNotes(notes record.Notes, final bool) {
	if !m.cache.ReplaceNotes(m.ctx, notes) {
		return
	}
	m.view.Notes(notes)
	m.notify(notify.New(notify.KindNotesUpdated, notify.LevelInfo, "Notes updated", "%d batches", len(notes)))
	m.logger.Info("notes snapshot replaced",
		logging.Int("batches", len(notes)),
		logging.Bool("final", final))
}

func (m *Manager) onNotesFailed(err error, final bool) {
	logging.WarnWithContext(m.logger, "notes fetch failed", "notes_fetch_failed",
		logging.Error(err),
		logging.Bool("final", final),
		logging.String(logging.FieldErrorHint, "check the backend; polling continues"),
		logging.String(logging.FieldImpact, "notes snapshot kept from the previous fetch"))
	m.notify(notify.New(notify.KindNotesFailed, notify.LevelWarning, "Notes refresh failed", "%s", describe(err)))
}

func (m *Manager) requestFailed(op string, err error) {
	logging.WarnWithContext(m.logger, op+" failed", "request_failed",
		logging.Error(err),
		logging.Bool("backend_unavailable", backend.IsUnavailable(err)),
		logging.String(logging.FieldErrorHint, "check that the backend is running"),
		logging.String(logging.FieldImpact, "no local state changed"))
	m.exec(func() {
		m.notify(notify.New(notify.KindRequestFailed, notify.LevelError, "Request failed", "%s: %s", op, describe(err)))
	})
}

// describe renders an error for a notice, preferring the backend's detail.
func describe(err error) string {
	var reqErr *backend.RequestError
	if errors.As(err, &reqErr) && reqErr.Detail != "" {
		return reqErr.Detail
	}
	if backend.IsUnavailable(err) {
		return "backend unreachable"
	}
	return err.Error()
}
