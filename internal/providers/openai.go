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

type OpenAI struct {
	Key, Model string
	DryRun     bool
}

func (c *OpenAI) Name() SourceName { return SourceOpenAI }

func (c *OpenAI) Complete(ctx context.Context, prompt string) (Completion, error) {
	// DRY_RUN mode: skip API call
	if c.DryRun {
		log := telemetry.L().With().Str("provider", string(c.Name())).Logger()
		log.Info().Msg("openai_dry_run_enabled")
		return Completion{
			Text:      "simulated completion",
			LatencyMs: 1,
			TokenUsage: map[string]any{
				"prompt_tokens":     len(strings.Fields(prompt)),
				"completion_tokens": 5,
			},
		}, nil
	}

	body := map[string]any{
		"model": c.Model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
		"max_tokens":  2048,
	}
	b, _ := json.Marshal(body)
	log := telemetry.L().With().Str("provider", string(c.Name())).Int("body_len", len(b)).Logger()

	req, _ := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.Key)
	req.Header.Set("Content-Type", "application/json")

	t0 := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("openai_request_failed")
		return Completion{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	log.Debug().Int("body_len", len(raw)).Msg("openai_response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("status", resp.Status).
			RawJSON("body", raw).
			Msg("openai_http_error")
		return Completion{}, &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: apiErrMessage(raw)}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Completion{}, err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return Completion{}, &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: "empty completion"}
	}

	return Completion{
		Text:       strings.TrimSpace(out.Choices[0].Message.Content),
		LatencyMs:  int(time.Since(t0) / time.Millisecond),
		TokenUsage: out.Usage,
	}, nil
}

// apiErrMessage pulls the provider's error message out of an error body.
func apiErrMessage(raw []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return ""
}
