package study

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/providers"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

// ErrGenerationUnavailable is returned when the model stayed rate limited
// through every retry. Structured generation has no canned fallback; the
// client retries later.
var ErrGenerationUnavailable = errors.New("study aid generation temporarily unavailable")

const fallbackFeedback = "Interview feedback could not be generated right now. " +
	"Your transcript is saved; check back in a few minutes."

type Service struct {
	ai    providers.Client
	retry providers.RetryConfig
}

func NewService(ai providers.Client) *Service {
	return &Service{ai: ai, retry: providers.DefaultRetry()}
}

// structured runs a prompt that must come back as parseable JSON. A degraded
// (fallback) completion is useless here, so it surfaces as an error.
func (s *Service) structured(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()
	comp, err := providers.CompleteWithRetry(ctx, s.ai, prompt, s.retry, "")
	if err != nil {
		return "", err
	}
	if comp.Degraded {
		return "", ErrGenerationUnavailable
	}
	return comp.Text, nil
}

func (s *Service) GenerateFlashcards(ctx context.Context, docText string, count int) ([]model.Flashcard, error) {
	text, err := s.structured(ctx, providers.BuildFlashcardPrompt(docText, count))
	if err != nil {
		return nil, err
	}
	cards, err := providers.ParseFlashcards(text)
	if errors.Is(err, providers.ErrUnparsable) {
		// one reprompt; models occasionally wrap the payload in prose
		telemetry.L().Warn().Msg("flashcards_unparsable_retry")
		text, err = s.structured(ctx, providers.BuildFlashcardPrompt(docText, count))
		if err != nil {
			return nil, err
		}
		cards, err = providers.ParseFlashcards(text)
	}
	return cards, err
}

func (s *Service) GenerateQuiz(ctx context.Context, docText string, count int) ([]model.QuizQuestion, error) {
	text, err := s.structured(ctx, providers.BuildQuizPrompt(docText, count))
	if err != nil {
		return nil, err
	}
	qs, err := providers.ParseQuizQuestions(text)
	if errors.Is(err, providers.ErrUnparsable) {
		telemetry.L().Warn().Msg("quiz_unparsable_retry")
		text, err = s.structured(ctx, providers.BuildQuizPrompt(docText, count))
		if err != nil {
			return nil, err
		}
		qs, err = providers.ParseQuizQuestions(text)
	}
	return qs, err
}

// GenerateStudyPack builds a deck and a quiz from the same document in
// parallel.
func (s *Service) GenerateStudyPack(ctx context.Context, docText string, cards, questions int) ([]model.Flashcard, []model.QuizQuestion, error) {
	var (
		fc []model.Flashcard
		qs []model.QuizQuestion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fc, err = s.GenerateFlashcards(gctx, docText, cards)
		return err
	})
	g.Go(func() error {
		var err error
		qs, err = s.GenerateQuiz(gctx, docText, questions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return fc, qs, nil
}

// conversational turns degrade to canned text instead of failing
func (s *Service) converse(ctx context.Context, prompt, fallback string) (providers.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return providers.CompleteWithRetry(ctx, s.ai, prompt, s.retry, fallback)
}

func (s *Service) OpenInterview(ctx context.Context, role string) (providers.Completion, error) {
	return s.converse(ctx, providers.BuildInterviewOpener(role), providers.FallbackInterviewTurn)
}

func (s *Service) NextInterviewTurn(ctx context.Context, role string, transcript []model.InterviewTurn, answer string) (providers.Completion, error) {
	return s.converse(ctx, providers.BuildInterviewTurn(role, transcript, answer), providers.FallbackInterviewTurn)
}

func (s *Service) InterviewFeedback(ctx context.Context, role string, transcript []model.InterviewTurn) (providers.Completion, error) {
	return s.converse(ctx, providers.BuildInterviewFeedback(role, transcript), fallbackFeedback)
}
