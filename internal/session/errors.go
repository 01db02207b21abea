package session

import "errors"

var (
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrQuestionPending is returned by Ask while an earlier question has no answer yet.
	ErrQuestionPending = errors.New("previous question is still being answered")
	// ErrEmptyTopic is returned by SetTopic for a blank topic.
	ErrEmptyTopic = errors.New("topic is empty")
	// ErrShutdown is returned by operations on a manager that has been shut down.
	ErrShutdown = errors.New("session manager shut down")
)
