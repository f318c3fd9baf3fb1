// Package llm answers tutor chat and Socratic dialogue turns from an
// OpenAI-compatible endpoint instead of the remote backend.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/mentor/internal/gateway"
	"github.com/pavelanni/mentor/internal/llm/prompts"
	"github.com/pavelanni/mentor/internal/model"
)

// ErrEmptyReply is returned when the model answers with no content.
var ErrEmptyReply = errors.New("LLM returned an empty reply")

// Tutor is a gateway.Backend whose dialogue operations go to an LLM. All
// other operations are delegated to the wrapped backend.
type Tutor struct {
	gateway.Backend

	api      *openai.Client
	model    string
	language string
}

var _ gateway.Backend = (*Tutor)(nil)

// New creates a tutor in front of backend.
func New(backend gateway.Backend, baseURL, apiKey, modelName, language string) *Tutor {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Tutor{
		Backend:  backend,
		api:      openai.NewClientWithConfig(config),
		model:    modelName,
		language: languageName(language),
	}
}

// Ping checks that the endpoint is reachable.
func (t *Tutor) Ping(ctx context.Context) error {
	if _, err := t.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// ChatWithTutor answers the learner in the session-wide tutor chat.
func (t *Tutor) ChatWithTutor(ctx context.Context, messages []model.ChatMessage, profile json.RawMessage) (string, error) {
	system, task, err := prompts.BuildTutorPrompts(profileText(profile), messages, t.language)
	if err != nil {
		return "", fmt.Errorf("build tutor prompts: %w", err)
	}
	return t.complete(ctx, system, task, 0.7)
}

// AssessWithSocraticTutor asks the next Socratic question on topic.
func (t *Tutor) AssessWithSocraticTutor(ctx context.Context, topic string, messages []model.ChatMessage) (string, error) {
	system, task, err := prompts.BuildSocraticPrompts(topic, messages, t.language)
	if err != nil {
		return "", fmt.Errorf("build socratic prompts: %w", err)
	}
	return t.complete(ctx, system, task, 0.5)
}

func (t *Tutor) complete(ctx context.Context, system, task string, temperature float32) (string, error) {
	resp, err := t.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: task},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM response", "model", t.model, "chars", len(reply))
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// profileText renders the opaque learner profile for the prompt.
func profileText(profile json.RawMessage) string {
	if len(profile) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(profile, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(profile, &v); err != nil {
		return string(profile)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(profile)
	}
	return string(out)
}

func languageName(lang string) string {
	switch strings.ToLower(lang) {
	case "ko":
		return "Korean"
	case "en", "":
		return "English"
	default:
		return lang
	}
}
