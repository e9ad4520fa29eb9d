package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careercraft/careercraft_service/internal/telemetry"
)

type Anthropic struct {
	Key, Model string
	DryRun     bool
}

func (c *Anthropic) Name() SourceName { return SourceClaude }

func (c *Anthropic) Complete(ctx context.Context, prompt string) (Completion, error) {
	// DRY_RUN mode: skip API call
	if c.DryRun {
		log := telemetry.L().With().Str("provider", string(c.Name())).Logger()
		log.Info().Msg("anthropic_dry_run_enabled")
		return Completion{Text: "simulated completion", LatencyMs: 1}, nil
	}

	body := map[string]any{
		"model":      c.Model,
		"max_tokens": 2048,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewReader(b))
	req.Header.Set("x-api-key", c.Key)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	t0 := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: apiErrMessage(raw)}
	}

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage map[string]any `json:"usage"`
	}
	_ = json.Unmarshal(raw, &out)
	if len(out.Content) == 0 || strings.TrimSpace(out.Content[0].Text) == "" {
		return Completion{}, &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: "empty content"}
	}

	return Completion{
		Text:       strings.TrimSpace(out.Content[0].Text),
		LatencyMs:  int(time.Since(t0) / time.Millisecond),
		TokenUsage: out.Usage,
	}, nil
}
