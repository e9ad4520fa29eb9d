package providers

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/careercraft/careercraft_service/internal/model"
)

var ErrUnparsable = errors.New("could not extract structured payload from completion")

// ParseFlashcards normalizes a model completion into flashcards.
// Priorities: raw JSON -> code fence JSON -> first JSON array in the text.
func ParseFlashcards(text string) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	if err := unmarshalLoose(text, &cards); err != nil {
		return nil, err
	}
	out := cards[:0]
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front != "" && c.Back != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrUnparsable
	}
	return out, nil
}

// ParseQuizQuestions normalizes a model completion into quiz questions,
// dropping entries with malformed options or answer indexes.
func ParseQuizQuestions(text string) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	if err := unmarshalLoose(text, &qs); err != nil {
		return nil, err
	}
	out := qs[:0]
	for _, q := range qs {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || len(q.Options) < 2 {
			continue
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrUnparsable
	}
	return out, nil
}

func unmarshalLoose(text string, out any) error {
	text = strings.TrimSpace(text)
	if json.Unmarshal([]byte(text), out) == nil {
		return nil
	}
	if s := extractCodeFence(text); s != "" && json.Unmarshal([]byte(s), out) == nil {
		return nil
	}
	if s := extractFirstJSONArray(text); s != "" && json.Unmarshal([]byte(s), out) == nil {
		return nil
	}
	return ErrUnparsable
}

var rxFence = regexp.MustCompile("(?is)```(?:json)?\\s*([\\[{][\\s\\S]*?[\\]}])\\s*```")

func extractCodeFence(s string) string {
	m := rxFence.FindStringSubmatch(s)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

// find the first JSON array by simple bracket balancing
func extractFirstJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	level := 0
	inStr := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			if i == 0 || s[i-1] != '\\' {
				inStr = !inStr
			}
		case '[':
			if !inStr {
				level++
			}
		case ']':
			if !inStr {
				level--
				if level == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
