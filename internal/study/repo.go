package study

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/careercraft/careercraft_service/internal/model"
)

var ErrNotFound = errors.New("study item not found")

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) InsertDeck(ctx context.Context, d *model.FlashcardDeck) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO flashcard_decks (user_id, document_id, title, cards_json, card_count, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		d.UserID, d.DocumentID, d.Title, d.CardsJSON, d.CardCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) DeckByID(ctx context.Context, id, userID int64) (*model.FlashcardDeck, error) {
	var d model.FlashcardDeck
	err := r.db.GetContext(ctx, &d, `
		SELECT id, user_id, document_id, title, cards_json, card_count, created_at
		FROM flashcard_decks WHERE id=? AND user_id=? LIMIT 1`, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *Repo) ListDecks(ctx context.Context, userID int64) ([]model.FlashcardDeck, error) {
	var out []model.FlashcardDeck
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, user_id, document_id, title, cards_json, card_count, created_at
		FROM flashcard_decks WHERE user_id=? ORDER BY id DESC`, userID)
	return out, err
}

func (r *Repo) InsertQuiz(ctx context.Context, q *model.Quiz) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO quizzes (user_id, document_id, title, questions_json, question_count, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		q.UserID, q.DocumentID, q.Title, q.QuestionsJSON, q.QuestionCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) QuizByID(ctx context.Context, id, userID int64) (*model.Quiz, error) {
	var q model.Quiz
	err := r.db.GetContext(ctx, &q, `
		SELECT id, user_id, document_id, title, questions_json, question_count, created_at
		FROM quizzes WHERE id=? AND user_id=? LIMIT 1`, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (r *Repo) ListQuizzes(ctx context.Context, userID int64) ([]model.Quiz, error) {
	var out []model.Quiz
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, user_id, document_id, title, questions_json, question_count, created_at
		FROM quizzes WHERE user_id=? ORDER BY id DESC`, userID)
	return out, err
}

func (r *Repo) InsertResult(ctx context.Context, res *model.QuizResult) (int64, error) {
	out, err := r.db.ExecContext(ctx, `
		INSERT INTO quiz_results (quiz_id, user_id, score, total, answers_json, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		res.QuizID, res.UserID, res.Score, res.Total, res.AnswersJSON)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

func (r *Repo) ResultsByQuiz(ctx context.Context, quizID, userID int64) ([]model.QuizResult, error) {
	var out []model.QuizResult
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, quiz_id, user_id, score, total, answers_json, created_at
		FROM quiz_results WHERE quiz_id=? AND user_id=? ORDER BY id DESC`, quizID, userID)
	return out, err
}

func (r *Repo) InsertInterview(ctx context.Context, s *model.InterviewSession) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO interview_sessions (user_id, role, status, transcript_json, started_at)
		VALUES (?, ?, ?, ?, NOW())`,
		s.UserID, s.Role, s.Status, s.TranscriptJSON)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) InterviewByID(ctx context.Context, id, userID int64) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.db.GetContext(ctx, &s, `
		SELECT id, user_id, role, status, transcript_json, feedback, started_at, ended_at
		FROM interview_sessions WHERE id=? AND user_id=? LIMIT 1`, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *Repo) ListInterviews(ctx context.Context, userID int64) ([]model.InterviewSession, error) {
	var out []model.InterviewSession
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, user_id, role, status, transcript_json, feedback, started_at, ended_at
		FROM interview_sessions WHERE user_id=? ORDER BY id DESC`, userID)
	return out, err
}

func (r *Repo) SaveTranscript(ctx context.Context, id int64, transcriptJSON string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE interview_sessions SET transcript_json=? WHERE id=?`, transcriptJSON, id)
	return err
}

func (r *Repo) FinishInterview(ctx context.Context, id int64, transcriptJSON, feedback string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE interview_sessions SET status=?, transcript_json=?, feedback=?, ended_at=NOW()
		WHERE id=?`, model.InterviewFinished, transcriptJSON, feedback, id)
	return err
}
