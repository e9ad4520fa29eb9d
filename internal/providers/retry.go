package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/careercraft/careercraft_service/internal/telemetry"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// CompleteWithRetry calls cli with bounded exponential backoff. Terminal
// errors propagate immediately. When every attempt fails with a retriable
// (rate-limit/overload) error, the canned fallback text is returned with a
// nil error so the user-facing flow degrades instead of failing.
func CompleteWithRetry(ctx context.Context, cli Client, prompt string, cfg RetryConfig, fallback string) (Completion, error) {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultRetry()
	}
	log := telemetry.L().With().Str("provider", string(cli.Name())).Logger()

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		out, err := cli.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return Completion{}, err
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("provider_retry")
	}

	log.Warn().Err(lastErr).Msg("provider_retries_exhausted_fallback")
	if fallback == "" {
		return Completion{}, fmt.Errorf("provider retries exhausted: %w", lastErr)
	}
	return Completion{Text: fallback, Degraded: true}, nil
}
