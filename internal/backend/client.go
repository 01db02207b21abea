package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"classaudio/internal/config"
	"classaudio/internal/logging"
	"classaudio/internal/record"
)

const (
	headerRequestID = "X-Request-ID"
	headerClientID  = "X-Client-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	QATimeout      time.Duration
	ClientID       string
	Logger         *slog.Logger
}

// Client talks to the backend HTTP API.
type Client struct {
	http      *resty.Client
	timeout   time.Duration
	qaTimeout time.Duration
	clientID  string
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewFromConfig builds a client for cfg.Backend.
func NewFromConfig(cfg *config.Config, clientID string, logger *slog.Logger) *Client {
	return New(Options{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.RequestTimeout(),
		QATimeout:      cfg.QATimeout(),
		ClientID:       clientID,
		Logger:         logger,
	})
}

// New constructs a client.
func New(opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.QATimeout <= 0 {
		opts.QATimeout = opts.RequestTimeout
	}
	if strings.TrimSpace(opts.ClientID) == "" {
		opts.ClientID = uuid.NewString()
	}

	http := resty.New()
	http.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	http.SetHeader("Accept", "application/json")
	http.SetHeader(headerClientID, opts.ClientID)

	return &Client{
		http:      http,
		timeout:   opts.RequestTimeout,
		qaTimeout: opts.QATimeout,
		clientID:  opts.ClientID,
		validate:  validator.New(),
		logger:    logging.NewComponentLogger(opts.Logger, "backend"),
	}
}

// ClientID returns the identifier sent with every request.
func (c *Client) ClientID() string { return c.clientID }

// Health succeeds when the backend reports itself ready.
func (c *Client) Health(ctx context.Context) error {
	var body healthResponse
	if err := c.do(ctx, "health", resty.MethodGet, "/health", nil, &body); err != nil {
		return err
	}
	if body.Status != "" && body.Status != "healthy" {
		return &RequestError{Op: "health", Detail: "backend status " + body.Status}
	}
	if body.AudioService == "not initialized" || body.LLMService == "not initialized" {
		return &RequestError{Op: "health", Detail: "backend services not initialized"}
	}
	return nil
}

// Status fetches the backend session id and whether capture is running.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var body statusResponse
	if err := c.do(ctx, "status", resty.MethodGet, "/api/status", nil, &body); err != nil {
		return Status{}, err
	}
	st := Status{RecordingActive: body.AudioService.IsRunning}
	if body.LLMService.SessionID != nil {
		st.SessionID = strings.TrimSpace(*body.LLMService.SessionID)
	}
	return st, nil
}

// Start asks the backend to begin capture.
func (c *Client) Start(ctx context.Context) (ControlResult, error) {
	var body ControlResult
	err := c.do(ctx, "start", resty.MethodPost, "/api/control/start", nil, &body)
	return body, err
}

// Stop asks the backend to end capture.
func (c *Client) Stop(ctx context.Context) (ControlResult, error) {
	var body ControlResult
	err := c.do(ctx, "stop", resty.MethodPost, "/api/control/stop", nil, &body)
	return body, err
}

// FetchNotes returns the full structured notes snapshot in batch order.
func (c *Client) FetchNotes(ctx context.Context) (record.Notes, error) {
	var body notesResponse
	latest := func(req *resty.Request) { req.SetQueryParam("latest", "0") }
	if err := c.call(ctx, "fetch notes", resty.MethodGet, "/api/structured-content", 0, latest, &body); err != nil {
		return nil, err
	}
	if body.Content == nil {
		return record.Notes{}, nil
	}
	return body.Content, nil
}

// ClearNotes wipes the backend's structured notes.
func (c *Client) ClearNotes(ctx context.Context) error {
	var body ControlResult
	return c.do(ctx, "clear notes", resty.MethodPost, "/api/structured-content/clear", nil, &body)
}

// SetTopic generates the vocabulary prompt for topic on the backend.
func (c *Client) SetTopic(ctx context.Context, topic string) (TopicResult, error) {
	payload := topicRequest{Topic: strings.TrimSpace(topic)}
	if err := c.validate.Struct(payload); err != nil {
		return TopicResult{}, &RequestError{Op: "set topic", Detail: "invalid topic", Err: err}
	}
	var body TopicResult
	if err := c.do(ctx, "set topic", resty.MethodPost, "/api/keywords/generate", payload, &body); err != nil {
		return TopicResult{}, err
	}
	return body, nil
}

// VocabularyLength is the size of the generated vocabulary prompt.
func (r TopicResult) VocabularyLength() int {
	return utf8.RuneCountInString(r.ProfWords)
}

// Ask sends a question and returns the answer. It uses the longer QA timeout.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	payload := questionRequest{Question: strings.TrimSpace(question)}
	if err := c.validate.Struct(payload); err != nil {
		return "", &RequestError{Op: "ask", Detail: "invalid question", Err: err}
	}
	var body answerResponse
	withBody := func(req *resty.Request) { req.SetBody(payload) }
	if err := c.call(ctx, "ask", resty.MethodPost, "/api/qa/ask", c.qaTimeout, withBody, &body); err != nil {
		return "", err
	}
	return body.Answer, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, out any) error {
	var prepare func(*resty.Request)
	if payload != nil {
		prepare = func(req *resty.Request) { req.SetBody(payload) }
	}
	return c.call(ctx, op, method, path, 0, prepare, out)
}

// call executes one request under its own deadline. out must be a non-nil
// pointer.
func (c *Client) call(ctx context.Context, op, method, path string, timeout time.Duration, prepare func(*resty.Request), out any) error {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ensureContext(ctx), timeout)
	defer cancel()

	requestID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, requestID)
	logger := logging.WithContext(ctx, c.logger)

	var failure errorResponse
	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID).
		SetResult(out).
		SetError(&failure)
	if prepare != nil {
		prepare(req)
	}

	started := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		wrapped := err
		if IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) {
			wrapped = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		logger.Debug("backend request failed",
			logging.String("op", op),
			logging.Duration("elapsed", time.Since(started)),
			logging.Duration("timeout", timeout),
			logging.Error(err))
		return &RequestError{Op: op, Err: wrapped}
	}
	if resp.IsError() {
		detail := failure.Detail
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		logger.Debug("backend request rejected",
			logging.String("op", op),
			logging.Int("status", resp.StatusCode()),
			logging.String("detail", detail))
		return &RequestError{Op: op, Status: resp.StatusCode(), Detail: truncate(detail, 200)}
	}
	logger.Debug("backend request completed",
		logging.String("op", op),
		logging.Int("status", resp.StatusCode()),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "…"
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
