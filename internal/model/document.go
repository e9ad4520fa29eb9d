package model

import (
	"database/sql"
	"time"
)

// Document statuses.
const (
	DocProcessing = "processing"
	DocReady      = "ready"
	DocError      = "error"
)

type Document struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"user_id"`
	Title         string         `db:"title" json:"title"`
	FileName      string         `db:"file_name" json:"file_name"`
	FilePath      string         `db:"file_path" json:"-"`
	FileHash      string         `db:"file_hash" json:"-"`
	MIME          string         `db:"mime" json:"mime"`
	SizeBytes     int64          `db:"size_bytes" json:"size_bytes"`
	PageCount     int            `db:"page_count" json:"page_count"`
	Status        string         `db:"status" json:"status"`
	ExtractedText sql.NullString `db:"extracted_text" json:"-"`
	Summary       sql.NullString `db:"summary" json:"summary"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

type ChatMessage struct {
	ID         int64     `db:"id" json:"id"`
	DocumentID int64     `db:"document_id" json:"document_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Role       string    `db:"role" json:"role"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
