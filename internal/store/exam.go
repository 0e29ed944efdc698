package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// CreateExam inserts an exam referencing existing questions.
func (s *Store) CreateExam(e model.Exam) (string, error) {
	id := uuid.NewString()
	ids, err := json.Marshal(e.QuestionIDs)
	if err != nil {
		return "", fmt.Errorf("marshal question IDs: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO exams (id, title, description, duration, question_ids, question_count, pass_threshold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Title, e.Description, e.Duration, string(ids), len(e.QuestionIDs), e.PassThreshold, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// CreateExamWithQuestions inserts a batch of drafted questions and the exam
// referencing them in one transaction, so a failure partway through leaves
// no orphaned question documents.
func (s *Store) CreateExamWithQuestions(e model.Exam, questions []model.Question) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now()
	questionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		qID := uuid.NewString()
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return "", fmt.Errorf("marshal options: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (id, question_text, options, correct_answer, department, subject, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			qID, q.QuestionText, string(opts), q.CorrectAnswer, q.Department, q.Subject, now,
		)
		if err != nil {
			return "", err
		}
		questionIDs = append(questionIDs, qID)
	}

	examID := uuid.NewString()
	ids, err := json.Marshal(questionIDs)
	if err != nil {
		return "", fmt.Errorf("marshal question IDs: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO exams (id, title, description, duration, question_ids, question_count, pass_threshold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		examID, e.Title, e.Description, e.Duration, string(ids), len(questionIDs), e.PassThreshold, now,
	)
	if err != nil {
		return "", err
	}

	return examID, tx.Commit()
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id string) (model.Exam, error) {
	row := s.db.QueryRow(
		`SELECT id, title, description, duration, question_ids, question_count, pass_threshold, created_at
		 FROM exams WHERE id = ?`, id,
	)
	e, err := scanExam(row)
	if err == sql.ErrNoRows {
		return e, apperr.NotFound("exam")
	}
	return e, err
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, duration, question_ids, question_count, pass_threshold, created_at
		 FROM exams ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func scanExam(row rowScanner) (model.Exam, error) {
	var e model.Exam
	var ids string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Duration, &ids, &e.QuestionCount, &e.PassThreshold, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(ids), &e.QuestionIDs); err != nil {
		return e, fmt.Errorf("unmarshal question IDs for exam %s: %w", e.ID, err)
	}
	return e, nil
}
