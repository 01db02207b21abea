package backend

import "classaudio/internal/record"

// Status is the backend's view of the current session.
type Status struct {
	SessionID       string
	RecordingActive bool
}

type statusResponse struct {
	AudioService struct {
		IsRunning         bool `json:"is_running"`
		PartialQueueSize  int  `json:"partial_queue_size"`
		AccurateQueueSize int  `json:"accurate_queue_size"`
	} `json:"audio_service"`
	LLMService struct {
		SessionID *string `json:"session_id"`
	} `json:"llm_service"`
}

type healthResponse struct {
	Status       string `json:"status"`
	AudioService string `json:"audio_service"`
	LLMService   string `json:"llm_service"`
}

// ControlResult is the response of start/stop capture.
type ControlResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type notesResponse struct {
	Total    int          `json:"total"`
	Returned int          `json:"returned"`
	Content  record.Notes `json:"content"`
}

type topicRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
}

// TopicResult is the generated vocabulary for a topic.
type TopicResult struct {
	Topic     string `json:"topic"`
	ProfWords string `json:"prof_words"`
}

type questionRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type answerResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
