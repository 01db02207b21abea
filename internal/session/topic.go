package session

import (
	"context"
	"fmt"
	"strings"

	"classaudio/internal/backend"
	"classaudio/internal/logging"
	"classaudio/internal/notify"
)

// SetTopic has the backend generate a domain vocabulary for topic and
// remembers the topic for exports.
func (m *Manager) SetTopic(ctx context.Context, topic string) (backend.TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return backend.TopicResult{}, ErrEmptyTopic
	}

	result, err := m.backend.SetTopic(ctx, topic)
	if err != nil {
		logging.WarnWithContext(m.logger, "topic generation failed", "topic_failed",
			logging.Error(err),
			logging.String("topic", topic),
			logging.String(logging.FieldImpact, "transcription continues without a topic vocabulary"))
		m.exec(func() {
			m.notify(notify.New(notify.KindRequestFailed, notify.LevelError, "Topic not set", "%s", describe(err)))
		})
		return backend.TopicResult{}, fmt.Errorf("set topic: %w", err)
	}

	m.exec(func() {
		m.topic = topic
		if m.recording {
			m.notify(notify.New(notify.KindTopicSet, notify.LevelSuccess, "Topic set",
				"vocabulary generated; applies from the next sentence"))
		} else {
			m.notify(notify.New(notify.KindTopicSet, notify.LevelSuccess, "Topic set",
				"vocabulary generated (%d characters)", result.VocabularyLength()))
		}
	})
	m.logger.Info("topic set",
		logging.String("topic", topic),
		logging.Int("vocabulary_length", result.VocabularyLength()))
	return result, nil
}

// Topic returns the last topic set, or "".
func (m *Manager) Topic() string {
	var topic string
	m.exec(func() { topic = m.topic })
	return topic
}
