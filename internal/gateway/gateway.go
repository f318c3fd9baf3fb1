// Package gateway is the HTTP client for the remote tutoring backend. Every
// operation is one JSON request/response pair; the gateway normalizes the
// loosely shaped replies into typed values and performs no other logic.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavelanni/mentor/internal/model"
)

// ErrStatus is returned when the backend answers with a non-2xx status.
var ErrStatus = errors.New("backend returned error status")

// Backend is the set of remote operations the pages depend on.
type Backend interface {
	RefineLearningGoal(ctx context.Context, goal string, info model.LearnerInfo) (string, error)
	IdentifySkillGaps(ctx context.Context, goal string, info model.LearnerInfo) ([]model.SkillGap, json.RawMessage, error)
	CreateLearnerProfile(ctx context.Context, info model.LearnerInfo, goal string, rawGaps json.RawMessage) (json.RawMessage, error)
	ScheduleLearningPath(ctx context.Context, profile json.RawMessage, sessionCount int) (LearningPath, error)
	RescheduleLearningPath(ctx context.Context, profile, path json.RawMessage, sessionCount int, feedback string) (LearningPath, error)
	ExploreKnowledgePoints(ctx context.Context, req SessionRequest) ([]json.RawMessage, error)
	DraftKnowledgePoints(ctx context.Context, req SessionRequest, points []json.RawMessage) ([]json.RawMessage, error)
	IntegrateLearningDocument(ctx context.Context, req SessionRequest, points, drafts []json.RawMessage) (string, error)
	GenerateDocumentQuizzes(ctx context.Context, profile json.RawMessage, document string, counts QuizCounts) (json.RawMessage, error)
	ChatWithTutor(ctx context.Context, messages []model.ChatMessage, profile json.RawMessage) (string, error)
	AssessWithSocraticTutor(ctx context.Context, topic string, messages []model.ChatMessage) (string, error)
	UpdateLearnerProfile(ctx context.Context, req ProfileUpdate) error
}

// SessionRequest carries the context shared by the content pipeline stages.
type SessionRequest struct {
	LearnerProfile json.RawMessage
	LearningPath   json.RawMessage
	Session        json.RawMessage
}

// QuizCounts is the number of questions requested per type.
type QuizCounts struct {
	SingleChoice   int
	MultipleChoice int
	TrueFalse      int
	ShortAnswer    int
}

// DefaultQuizCounts is what the document view requests.
var DefaultQuizCounts = QuizCounts{SingleChoice: 3, MultipleChoice: 1, TrueFalse: 1, ShortAnswer: 1}

// LearningPath is a scheduled path: normalized sessions plus the verbatim payload.
type LearningPath struct {
	Sessions []model.Session
	Raw      json.RawMessage
}

// ProfileUpdate is the payload of the learner-profile update endpoint.
type ProfileUpdate struct {
	LearnerProfile     json.RawMessage
	Interactions       any
	LearnerInformation any
	Session            any
}

// ModelChoice selects the backend model for a group of operations.
type ModelChoice struct {
	Provider string
	Name     string
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	content  ModelChoice
	dialogue ModelChoice
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithModels sets the models used for content operations and for dialogue.
func WithModels(content, dialogue ModelChoice) Option {
	return func(c *Client) {
		c.content = content
		c.dialogue = dialogue
	}
}

// New creates a backend client. A zero timeout means no deadline.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		content:  ModelChoice{Provider: "shared", Name: "qwen-instruct"},
		dialogue: ModelChoice{Provider: "gpt-oss", Name: "gpt-oss-120b"},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// post sends body as JSON and returns the raw reply.
func (c *Client) post(ctx context.Context, op, endpoint string, body any) (json.RawMessage, error) {
	start := time.Now()
	data, err := json.Marshal(body)
	if err != nil {
		requestsTotal.WithLabelValues(op, "marshal_error").Inc()
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}
	url := c.url(endpoint)
	slog.Debug("gateway request", "op", op, "url", url, "body", summarize(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		slog.Debug("gateway error", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	slog.Debug("gateway response", "op", op, "status", resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(op, "read_error").Inc()
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestsTotal.WithLabelValues(op, "status_error").Inc()
		return nil, fmt.Errorf("%s: %w: %d", op, ErrStatus, resp.StatusCode)
	}
	if !json.Valid(payload) {
		requestsTotal.WithLabelValues(op, "decode_error").Inc()
		return nil, fmt.Errorf("%s: response is not JSON", op)
	}
	requestsTotal.WithLabelValues(op, "ok").Inc()
	return json.RawMessage(payload), nil
}

// summarize truncates a request body for debug logs.
func summarize(data []byte) string {
	const limit = 400
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "…"
}

// jsonString renders v as the pre-serialized JSON string the backend expects
// for nested objects. Raw JSON strings are passed through unquoted.
func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.RawMessage:
		if len(t) == 0 {
			return "{}"
		}
		if s, ok := asString(t); ok {
			return s
		}
		return string(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
