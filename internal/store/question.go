package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// InsertQuestion stores a question and returns its assigned ID.
func (s *Store) InsertQuestion(q model.Question) (string, error) {
	id := uuid.NewString()
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO questions (id, question_text, options, correct_answer, department, subject, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, q.QuestionText, string(opts), q.CorrectAnswer, q.Department, q.Subject, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id string) (model.Question, error) {
	row := s.db.QueryRow(
		`SELECT id, question_text, options, correct_answer, department, subject, created_at
		 FROM questions WHERE id = ?`, id,
	)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return q, apperr.NotFound("question")
	}
	return q, err
}

// GetQuestionsByIDs returns the questions matching the given IDs.
// The returned order is not guaranteed to match the input order.
func (s *Store) GetQuestionsByIDs(ids []string) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT id, question_text, options, correct_answer, department, subject, created_at
		 FROM questions WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// ListQuestions returns questions matching the given filters.
// Empty strings mean no filtering on that field.
func (s *Store) ListQuestions(department, subject string) ([]model.Question, error) {
	query := `SELECT id, question_text, options, correct_answer, department, subject, created_at
	          FROM questions WHERE 1=1`
	var args []any
	if department != "" {
		query += ` AND department = ?`
		args = append(args, department)
	}
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// ListDistinctSubjects returns the subjects present in the bank,
// optionally filtered by department.
func (s *Store) ListDistinctSubjects(department string) ([]string, error) {
	query := `SELECT DISTINCT subject FROM questions`
	var args []any
	if department != "" {
		query += ` WHERE department = ?`
		args = append(args, department)
	}
	query += ` ORDER BY subject`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []string
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// QuestionCount returns the number of questions in the bank.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (model.Question, error) {
	var q model.Question
	var opts string
	err := row.Scan(&q.ID, &q.QuestionText, &opts, &q.CorrectAnswer, &q.Department, &q.Subject, &q.CreatedAt)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return q, fmt.Errorf("unmarshal options for question %s: %w", q.ID, err)
	}
	return q, nil
}

func collectQuestions(rows *sql.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
