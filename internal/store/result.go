package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// CreateResult persists a finished session's outcome and returns the
// assigned ID. Single insert, no upsert: results are never updated.
func (s *Store) CreateResult(r model.ExamResult) (string, error) {
	id := uuid.NewString()
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO results (id, exam_id, user_id, exam_title, answers, score, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.ExamID, r.UserID, r.ExamTitle, string(answers), r.Score, r.SubmittedAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetResult returns a result by ID.
func (s *Store) GetResult(id string) (model.ExamResult, error) {
	row := s.db.QueryRow(
		`SELECT id, exam_id, user_id, exam_title, answers, score, submitted_at
		 FROM results WHERE id = ?`, id,
	)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return r, apperr.NotFound("result")
	}
	return r, err
}

// ListResultsByUser returns a user's results, newest first.
func (s *Store) ListResultsByUser(userID string) ([]model.ExamResult, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, user_id, exam_title, answers, score, submitted_at
		 FROM results WHERE user_id = ? ORDER BY submitted_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ListResults returns all results, newest first.
func (s *Store) ListResults() ([]model.ExamResult, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, user_id, exam_title, answers, score, submitted_at
		 FROM results ORDER BY submitted_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

func scanResult(row rowScanner) (model.ExamResult, error) {
	var r model.ExamResult
	var answers string
	err := row.Scan(&r.ID, &r.ExamID, &r.UserID, &r.ExamTitle, &answers, &r.Score, &r.SubmittedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return r, fmt.Errorf("unmarshal answers for result %s: %w", r.ID, err)
	}
	return r, nil
}

func collectResults(rows *sql.Rows) ([]model.ExamResult, error) {
	var results []model.ExamResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
