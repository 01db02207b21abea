package session

import (
	"context"
	"errors"
	"fmt"

	"classaudio/internal/export"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/record"
)

// Clear wipes the cached captions, QA history and notes together. The session
// id is kept. With remote set the backend's notes are cleared first; a failed
// remote clear leaves local state untouched.
func (m *Manager) Clear(ctx context.Context, remote bool) error {
	if remote {
		if err := m.backend.ClearNotes(ctx); err != nil {
			m.requestFailed("clear backend notes", err)
			return fmt.Errorf("clear backend notes: %w", err)
		}
	}
	var err error
	m.exec(func() {
		if m.shutdown {
			err = ErrShutdown
			return
		}
		m.cache.Clear(m.ctx)
		m.partial = ""
		m.view.Reset()
		m.notify(notify.New(notify.KindCleared, notify.LevelSuccess, "Cleared", "captions, answers and notes removed"))
	})
	return err
}

// ClearQA wipes only the QA history and returns how many records it removed.
func (m *Manager) ClearQA() (int, error) {
	var (
		n   int
		err error
	)
	m.exec(func() {
		if m.shutdown {
			err = ErrShutdown
			return
		}
		n = m.cache.ClearQA(m.ctx)
		if n > 0 {
			m.notify(notify.New(notify.KindCleared, notify.LevelSuccess, "Cleared", "%d questions removed", n))
		}
	})
	return n, err
}

// Refresh fetches notes immediately outside the poll cadence. The result is
// applied like a poll result: unchanged content causes no write.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	notes, err := m.backend.FetchNotes(ctx)
	var changed bool
	m.exec(func() {
		if m.shutdown {
			return
		}
		if err != nil {
			m.onNotesFailed(err, false)
			return
		}
		before := m.cache.Summary().Batches
		changed = !m.cache.Notes().Equal(notes)
		m.onNotes(notes, false)
		m.logger.Debug("manual notes refresh",
			logging.Int("batches_before", before),
			logging.Bool("changed", changed))
	})
	return changed, err
}

// Export renders the notes as markdown. Unless cachedOnly is set the latest
// notes are fetched first; a failed fetch falls back to the cached snapshot.
func (m *Manager) Export(ctx context.Context, cachedOnly bool) (string, error) {
	var notes record.Notes
	fetched := false
	if !cachedOnly {
		fresh, err := m.backend.FetchNotes(ctx)
		if err != nil {
			logging.WarnWithContext(m.logger, "export fetch failed, using cached notes", "export_fetch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "export may miss the latest batch"))
		} else {
			notes = fresh
			fetched = true
		}
	}

	var (
		doc export.Document
		err error
	)
	m.exec(func() {
		if m.shutdown {
			err = ErrShutdown
			return
		}
		if fetched {
			m.onNotes(notes, false)
		}
		doc = export.Document{Notes: m.cache.Notes(), Topic: m.topic, ExportedAt: m.sched.Now()}
	})
	if err != nil {
		return "", err
	}

	out, err := export.Markdown(doc)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			m.exec(func() {
				m.notify(notify.New(notify.KindExported, notify.LevelWarning, "Nothing to export", "no notes yet"))
			})
		}
		return "", err
	}
	m.exec(func() {
		m.notify(notify.New(notify.KindExported, notify.LevelSuccess, "Exported", "%d batches", len(doc.Notes)))
	})
	return out, nil
}
