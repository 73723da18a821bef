package labeler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"repoindex/config"
	"repoindex/internal/domain"
)

const (
	fallbackTopic        = "code"
	fallbackSummaryLines = 3
	fallbackSummaryBytes = 280
)

const promptTemplate = `You are labeling a repository chunk for retrieval. Use the schema fields: topic, project, summary, open_questions (array of strings).
- topic: short topical slug based on content and path.
- project: repository/project slug (prefer repo-level context from path).
- summary: 1-2 sentences, concrete and specific.
- open_questions: list of unanswered questions implied by the chunk (empty if none).
Return a JSON object with exactly these keys.
Path: %s
---
%s
---
JSON:`

// LLM labels chunks with an OpenAI-compatible chat model. A response that
// is not valid JSON, or lacks fields, is filled in with defaults; only
// transport errors are returned.
type LLM struct {
	client    llms.Model
	project   string
	heuristic *Heuristic
	logger    *slog.Logger
}

// NewLLM connects to the endpoint described by cfg.
func NewLLM(cfg config.LabelerConfig) (*LLM, error) {
	token := os.Getenv(cfg.APIKeyEnv)
	if token == "" {
		// local OpenAI-compatible servers ignore the token
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create labeler client: %w", err)
	}
	return NewLLMWithModel(client, cfg.Project), nil
}

// NewLLMWithModel wraps an existing model client.
func NewLLMWithModel(client llms.Model, project string) *LLM {
	return &LLM{
		client:    client,
		project:   project,
		heuristic: NewHeuristic(project),
		logger:    slog.Default().With("component", "llm-labeler"),
	}
}

// Label asks the model for labels when useLLM is set and falls back to the
// heuristic labeler otherwise.
func (l *LLM) Label(ctx context.Context, path, text string, useLLM bool) (domain.Labels, error) {
	if !useLLM {
		return l.heuristic.labels(path, text), nil
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(promptTemplate, path, text)),
	}
	resp, err := l.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return domain.Labels{}, fmt.Errorf("failed to label %s: %w", path, err)
	}

	var raw string
	if len(resp.Choices) > 0 {
		raw = resp.Choices[0].Content
	}
	return l.parse(path, text, raw), nil
}

func (l *LLM) parse(path, text, raw string) domain.Labels {
	labels := domain.Labels{
		Topic:         fallbackTopic,
		Project:       l.project,
		OpenQuestions: []string{},
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		l.logger.Debug("unparseable label response", "path", path, "err", err)
		fields = nil
	}

	if s, ok := fields["topic"].(string); ok {
		labels.Topic = s
	}
	if s, ok := fields["project"].(string); ok {
		labels.Project = s
	}
	if s, ok := fields["summary"].(string); ok && strings.TrimSpace(s) != "" {
		labels.Summary = s
	} else {
		labels.Summary = fallbackSummary(text)
	}
	if qs, ok := fields["open_questions"].([]any); ok {
		for _, q := range qs {
			if s, ok := q.(string); ok {
				labels.OpenQuestions = append(labels.OpenQuestions, s)
			}
		}
	}
	return labels
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func fallbackSummary(text string) string {
	return truncate(strings.Join(firstLines(text, fallbackSummaryLines), " "), fallbackSummaryBytes)
}
