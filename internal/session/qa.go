package session

import (
	"context"
	"fmt"
	"strings"

	"classaudio/internal/cache"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
	"classaudio/internal/record"
)

// AnswerUnavailable replaces the answer of a question whose request failed.
const AnswerUnavailable = "Sorry, the Q&A service is temporarily unavailable. Please try again later."

// Ask sends a question about the lecture. Only one question may be pending at
// a time. The exchange is added to the history immediately and resolved
// exactly once when the request finishes; a failed request leaves an errored
// record with AnswerUnavailable.
func (m *Manager) Ask(ctx context.Context, question string) (record.QA, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return record.QA{}, ErrEmptyQuestion
	}

	var (
		ticket  cache.Ticket
		pending record.QA
		err     error
	)
	m.exec(func() {
		switch {
		case m.shutdown:
			err = ErrShutdown
		case m.cache.PendingQuestion():
			err = ErrQuestionPending
		default:
			pending = record.QA{Question: question, Loading: true, Timestamp: record.Clock(m.sched.Now())}
			ticket = m.cache.BeginQuestion(pending.Question, pending.Timestamp)
			m.view.QA(pending)
		}
	})
	if err != nil {
		return record.QA{}, err
	}

	answer, askErr := m.backend.Ask(ctx, question)

	var resolved record.QA
	var ok bool
	m.exec(func() {
		if askErr != nil {
			resolved, ok = m.cache.ResolveQuestion(m.ctx, ticket, AnswerUnavailable, true)
			logging.WarnWithContext(m.logger, "question failed", "qa_failed",
				logging.Error(askErr),
				logging.String(logging.FieldErrorHint, "retry the question once the backend is reachable"),
				logging.String(logging.FieldImpact, "question recorded without an answer"))
			m.notify(notify.New(notify.KindQAFailed, notify.LevelError, "Question failed", "%s", describe(askErr)))
		} else {
			resolved, ok = m.cache.ResolveQuestion(m.ctx, ticket, answer, false)
		}
		if ok {
			m.view.QA(resolved)
		}
	})

	if !ok {
		m.logger.Info("answer arrived after the history was cleared; discarded")
		if askErr != nil {
			return record.QA{}, fmt.Errorf("ask: %w", askErr)
		}
		return record.QA{Question: question, Answer: answer, Timestamp: pending.Timestamp}, nil
	}
	if askErr != nil {
		return resolved, fmt.Errorf("ask: %w", askErr)
	}
	return resolved, nil
}
