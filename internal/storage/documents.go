package storage

import (
	"context"
	"time"
)

// ResumeDocument is a stored resume file plus its extracted text.
type ResumeDocument struct {
	ID          string
	CandidateID string
	Filename    string
	FilePath    string
	FileType    string
	FileSize    int64
	ParsedText  string
	UploadedAt  time.Time
}

// SaveResumeDocument stores resume metadata and parsed text.
func (db *DB) SaveResumeDocument(ctx context.Context, doc *ResumeDocument) error {
	query := `INSERT INTO resume_documents (id, candidate_id, filename, file_path, file_type, file_size, parsed_text, uploaded_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err := db.connection.ExecContext(ctx, query,
		doc.ID, doc.CandidateID, doc.Filename, doc.FilePath, doc.FileType, doc.FileSize, doc.ParsedText)
	return err
}

// ResumeDocuments lists a candidate's stored resumes, newest first.
func (db *DB) ResumeDocuments(ctx context.Context, candidateID string) ([]ResumeDocument, error) {
	query := `SELECT id, candidate_id, filename, file_path, file_type, file_size, parsed_text, uploaded_at
              FROM resume_documents WHERE candidate_id = $1 ORDER BY uploaded_at DESC`
	rows, err := db.connection.QueryContext(ctx, query, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ResumeDocument
	for rows.Next() {
		var d ResumeDocument
		if err := rows.Scan(&d.ID, &d.CandidateID, &d.Filename, &d.FilePath, &d.FileType,
			&d.FileSize, &d.ParsedText, &d.UploadedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// RecordActivity appends one entry to a candidate's activity history
// (resume uploaded, facts extracted, merged, and so on).
func (db *DB) RecordActivity(ctx context.Context, candidateID, kind, detail string) error {
	query := `INSERT INTO candidate_activities (candidate_id, kind, detail, created_at)
              VALUES ($1, $2, $3, NOW())`
	_, err := db.connection.ExecContext(ctx, query, candidateID, kind, detail)
	return err
}
