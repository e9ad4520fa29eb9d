package model

import (
	"database/sql"
	"time"
)

type FlashcardDeck struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	DocumentID int64     `db:"document_id" json:"document_id"`
	Title      string    `db:"title" json:"title"`
	CardsJSON  string    `db:"cards_json" json:"-"`
	CardCount  int       `db:"card_count" json:"card_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type Quiz struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	DocumentID    int64     `db:"document_id" json:"document_id"`
	Title         string    `db:"title" json:"title"`
	QuestionsJSON string    `db:"questions_json" json:"-"`
	QuestionCount int       `db:"question_count" json:"question_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
	Why      string   `json:"why,omitempty"`
}

type QuizResult struct {
	ID          int64     `db:"id" json:"id"`
	QuizID      int64     `db:"quiz_id" json:"quiz_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Score       int       `db:"score" json:"score"`
	Total       int       `db:"total" json:"total"`
	AnswersJSON string    `db:"answers_json" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Interview session statuses.
const (
	InterviewActive   = "active"
	InterviewFinished = "finished"
)

type InterviewSession struct {
	ID             int64          `db:"id" json:"id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Role           string         `db:"role" json:"role"`
	Status         string         `db:"status" json:"status"`
	TranscriptJSON string         `db:"transcript_json" json:"-"`
	Feedback       sql.NullString `db:"feedback" json:"feedback"`
	StartedAt      time.Time      `db:"started_at" json:"started_at"`
	EndedAt        sql.NullTime   `db:"ended_at" json:"ended_at"`
}

type InterviewTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
