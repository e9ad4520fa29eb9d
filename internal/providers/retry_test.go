package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (c *scriptedClient) Name() SourceName { return SourceOpenAI }

func (c *scriptedClient) Complete(_ context.Context, _ string) (Completion, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return Completion{}, c.errs[i]
	}
	return Completion{Text: "real answer"}, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func rateLimited() error {
	return &APIError{Provider: SourceOpenAI, StatusCode: 429, Message: "slow down"}
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	cli := &scriptedClient{errs: []error{rateLimited(), rateLimited(), nil}}
	out, err := CompleteWithRetry(context.Background(), cli, "p", fastRetry(), "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "real answer" || out.Degraded {
		t.Fatalf("want real result, got %+v", out)
	}
	if cli.calls != 3 {
		t.Fatalf("calls=%d, want 3", cli.calls)
	}
}

func TestRetryExhaustionReturnsFallback(t *testing.T) {
	cli := &scriptedClient{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited(), rateLimited()}}
	out, err := CompleteWithRetry(context.Background(), cli, "p", fastRetry(), "fallback")
	if err != nil {
		t.Fatalf("exhaustion on rate limits must not surface an error, got %v", err)
	}
	if out.Text != "fallback" || !out.Degraded {
		t.Fatalf("want degraded fallback, got %+v", out)
	}
	if cli.calls != 4 {
		t.Fatalf("calls=%d, want MaxRetries+1=4", cli.calls)
	}
}

func TestTerminalErrorNotRetried(t *testing.T) {
	terminal := &APIError{Provider: SourceOpenAI, StatusCode: 401, Message: "bad key"}
	cli := &scriptedClient{errs: []error{terminal}}
	_, err := CompleteWithRetry(context.Background(), cli, "p", fastRetry(), "fallback")
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode != 401 {
		t.Fatalf("terminal error must propagate immediately, got %v", err)
	}
	if cli.calls != 1 {
		t.Fatalf("calls=%d, want 1", cli.calls)
	}
}

func TestServerErrorIsRetriable(t *testing.T) {
	cli := &scriptedClient{errs: []error{
		&APIError{Provider: SourceOpenAI, StatusCode: 503, Message: "overloaded"},
		nil,
	}}
	out, err := CompleteWithRetry(context.Background(), cli, "p", fastRetry(), "fallback")
	if err != nil || out.Text != "real answer" {
		t.Fatalf("got %+v, %v", out, err)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cli := &scriptedClient{errs: []error{rateLimited(), rateLimited()}}
	if _, err := CompleteWithRetry(ctx, cli, "p", fastRetry(), "fallback"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
