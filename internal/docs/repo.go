package docs

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/careercraft/careercraft_service/internal/model"
)

var ErrNotFound = errors.New("document not found")

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

const docCols = `id, user_id, title, file_name, file_path, file_hash, mime, size_bytes,
	page_count, status, extracted_text, summary, created_at, updated_at`

func (r *Repo) Insert(ctx context.Context, d *model.Document) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO documents
			(user_id, title, file_name, file_path, file_hash, mime, size_bytes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		d.UserID, d.Title, d.FileName, d.FilePath, d.FileHash, d.MIME, d.SizeBytes, model.DocProcessing)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) ByID(ctx context.Context, id int64) (*model.Document, error) {
	var d model.Document
	err := r.db.GetContext(ctx, &d, `SELECT `+docCols+` FROM documents WHERE id=? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Owned loads the document and enforces ownership in one step.
func (r *Repo) Owned(ctx context.Context, id, userID int64) (*model.Document, error) {
	d, err := r.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrNotFound
	}
	return d, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]model.Document, error) {
	var out []model.Document
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+docCols+` FROM documents WHERE user_id=? ORDER BY id DESC`, userID)
	return out, err
}

func (r *Repo) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SaveExtracted(ctx context.Context, id int64, text string, pages int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET extracted_text=?, page_count=?, updated_at=NOW() WHERE id=?`,
		text, pages, id)
	return err
}

func (r *Repo) SaveSummary(ctx context.Context, id int64, summary string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET summary=?, status=?, updated_at=NOW() WHERE id=?`,
		summary, model.DocReady, id)
	return err
}

func (r *Repo) MarkError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE documents SET status=?, updated_at=NOW() WHERE id=?`,
		model.DocError, id)
	return err
}

func (r *Repo) InsertChat(ctx context.Context, m *model.ChatMessage) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (document_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, NOW())`,
		m.DocumentID, m.UserID, m.Role, m.Content)
	if err != nil {
		return err
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// ChatHistory returns the last n turns in chronological order.
func (r *Repo) ChatHistory(ctx context.Context, docID int64, n int) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, document_id, user_id, role, content, created_at
		FROM (
			SELECT id, document_id, user_id, role, content, created_at
			FROM chat_messages WHERE document_id=? ORDER BY id DESC LIMIT ?
		) t ORDER BY id ASC`, docID, n)
	return out, err
}
