package labeler

import (
	"context"
	"path"
	"strings"
	"unicode/utf8"

	"repoindex/internal/domain"
)

const (
	heuristicSummaryLines = 4
	heuristicSummaryBytes = 240
	defaultSummary        = "Code/document chunk"
)

// Heuristic labels chunks from their path and first lines without a model.
type Heuristic struct {
	project string
}

func NewHeuristic(project string) *Heuristic {
	return &Heuristic{project: project}
}

// Label ignores useLLM; it is the labeler used when model labels are off.
func (h *Heuristic) Label(_ context.Context, p, text string, _ bool) (domain.Labels, error) {
	return h.labels(p, text), nil
}

func (h *Heuristic) labels(p, text string) domain.Labels {
	return domain.Labels{
		Topic:         topicFromPath(p),
		Project:       h.project,
		Summary:       heuristicSummary(text),
		OpenQuestions: []string{},
	}
}

// topicFromPath uses the immediate parent directory, or the file stem for
// top-level files.
func topicFromPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "chunk"
	}
	return stem
}

func heuristicSummary(text string) string {
	head := strings.TrimSpace(strings.Join(firstLines(text, heuristicSummaryLines), " "))
	if head == "" {
		return defaultSummary
	}
	return truncate(head, heuristicSummaryBytes)
}

func firstLines(text string, n int) []string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	} else if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
