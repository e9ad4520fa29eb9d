package providers

import (
	"errors"
	"testing"
)

func TestParseFlashcardsPlainJSON(t *testing.T) {
	cards, err := ParseFlashcards(`[{"front":"What is Go?","back":"A programming language"}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 || cards[0].Front != "What is Go?" {
		t.Fatalf("got %+v", cards)
	}
}

func TestParseFlashcardsCodeFence(t *testing.T) {
	text := "Here you go:\n```json\n[{\"front\":\"Q\",\"back\":\"A\"},{\"front\":\"\",\"back\":\"dropped\"}]\n```\nEnjoy!"
	cards, err := ParseFlashcards(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 || cards[0].Back != "A" {
		t.Fatalf("got %+v", cards)
	}
}

func TestParseFlashcardsEmbeddedArray(t *testing.T) {
	text := `Sure! [{"front":"F","back":"B"}] hope that helps`
	cards, err := ParseFlashcards(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %+v", cards)
	}
}

func TestParseFlashcardsGarbage(t *testing.T) {
	if _, err := ParseFlashcards("I cannot do that."); !errors.Is(err, ErrUnparsable) {
		t.Fatalf("want ErrUnparsable, got %v", err)
	}
}

func TestParseQuizQuestionsDropsMalformed(t *testing.T) {
	text := `[
		{"question":"Good?","options":["a","b","c","d"],"answer":1,"why":"b is right"},
		{"question":"Bad index","options":["a","b"],"answer":5},
		{"question":"","options":["a","b"],"answer":0}
	]`
	qs, err := ParseQuizQuestions(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 || qs[0].Answer != 1 {
		t.Fatalf("got %+v", qs)
	}
}

func TestParseQuizQuestionsAllMalformed(t *testing.T) {
	if _, err := ParseQuizQuestions(`[{"question":"x","options":["a"],"answer":0}]`); !errors.Is(err, ErrUnparsable) {
		t.Fatalf("want ErrUnparsable, got %v", err)
	}
}
