package providers

import (
	"context"
)

// Completion is one model response plus bookkeeping.
type Completion struct {
	Text       string         `json:"text"`
	LatencyMs  int            `json:"latency_ms,omitempty"`
	TokenUsage map[string]any `json:"token_usage,omitempty"`
	// Degraded marks a canned fallback returned after retry exhaustion.
	Degraded bool `json:"degraded,omitempty"`
}

type SourceName string

const (
	SourceOpenAI SourceName = "OPENAI"
	SourceClaude SourceName = "CLAUDE"
	SourceGemini SourceName = "GEMINI"
)

type Client interface {
	Name() SourceName
	Complete(ctx context.Context, prompt string) (Completion, error)
}
