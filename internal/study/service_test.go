package study

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careercraft/careercraft_service/internal/providers"
)

// scriptedAI replays canned completion texts in order; empty string means a
// rate-limit error for that call.
type scriptedAI struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (c *scriptedAI) Name() providers.SourceName { return providers.SourceOpenAI }

func (c *scriptedAI) Complete(_ context.Context, _ string) (providers.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i >= len(c.texts) {
		return providers.Completion{}, errors.New("script exhausted")
	}
	if c.texts[i] == "" {
		return providers.Completion{}, &providers.APIError{Provider: providers.SourceOpenAI, StatusCode: 429, Message: "slow down"}
	}
	return providers.Completion{Text: c.texts[i]}, nil
}

func fastService(ai providers.Client) *Service {
	s := NewService(ai)
	s.retry = providers.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return s
}

const cardsJSON = `[{"front":"What is Go?","back":"A programming language"},{"front":"Who makes it?","back":"Google"}]`
const quizJSON = `[{"question":"2+2?","options":["3","4","5","6"],"answer":1,"why":"basic arithmetic"}]`

func TestGenerateFlashcards(t *testing.T) {
	ai := &scriptedAI{texts: []string{cardsJSON}}
	cards, err := fastService(ai).GenerateFlashcards(context.Background(), "doc text", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 || cards[0].Front != "What is Go?" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
}

func TestGenerateFlashcardsRepromptsOnGarbage(t *testing.T) {
	ai := &scriptedAI{texts: []string{"sorry, I cannot do that", cardsJSON}}
	cards, err := fastService(ai).GenerateFlashcards(context.Background(), "doc text", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d cards after reprompt, want 2", len(cards))
	}
	if ai.calls != 2 {
		t.Fatalf("calls=%d, want 2", ai.calls)
	}
}

func TestGenerateQuizUnavailableOnExhaustion(t *testing.T) {
	// every call rate limited; the degraded fallback is useless for
	// structured output and must surface as an error
	ai := &scriptedAI{texts: []string{"", "", "", ""}}
	_, err := fastService(ai).GenerateQuiz(context.Background(), "doc text", 1)
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("err = %v, want ErrGenerationUnavailable", err)
	}
}

// promptAwareAI answers by prompt kind so concurrent generation gets the
// right payload regardless of scheduling order.
type promptAwareAI struct{}

func (promptAwareAI) Name() providers.SourceName { return providers.SourceOpenAI }

func (promptAwareAI) Complete(_ context.Context, prompt string) (providers.Completion, error) {
	if strings.Contains(prompt, "flashcards") {
		return providers.Completion{Text: cardsJSON}, nil
	}
	return providers.Completion{Text: quizJSON}, nil
}

func TestGenerateStudyPack(t *testing.T) {
	cards, qs, err := fastService(promptAwareAI{}).GenerateStudyPack(context.Background(), "doc text", 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	if len(qs) != 1 || qs[0].Answer != 1 {
		t.Fatalf("unexpected questions: %+v", qs)
	}
}

func TestInterviewTurnDegradesToFallback(t *testing.T) {
	ai := &scriptedAI{texts: []string{"", ""}}
	comp, err := fastService(ai).OpenInterview(context.Background(), "backend engineer")
	if err != nil {
		t.Fatal(err)
	}
	if !comp.Degraded || comp.Text != providers.FallbackInterviewTurn {
		t.Fatalf("want canned interview fallback, got %+v", comp)
	}
}
