package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an administrator user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Question represents one multiple-choice question in the bank.
// Questions are insert-only: once an exam references one it is never updated.
type Question struct {
	ID            string    `json:"id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Department    string    `json:"department"`
	Subject       string    `json:"subject"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasOption reports whether opt is one of the question's options.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Exam is an ordered, fixed set of question references with a time budget.
type Exam struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Duration      int       `json:"duration"` // minutes
	QuestionIDs   []string  `json:"question_ids"`
	QuestionCount int       `json:"question_count"`
	PassThreshold int       `json:"pass_threshold"` // percent
	CreatedAt     time.Time `json:"created_at"`
}

// ExamResult is the persisted outcome of a completed session.
// Created exactly once at submission time, never mutated.
type ExamResult struct {
	ID          string            `json:"id"`
	ExamID      string            `json:"exam_id"`
	UserID      string            `json:"user_id"`
	ExamTitle   string            `json:"exam_title"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// QuestionImport is used for loading questions from JSON files.
type QuestionImport struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Department    string   `json:"department"`
	Subject       string   `json:"subject"`
}

// ResultView combines a result with its exam and questions for display.
type ResultView struct {
	Result    ExamResult `json:"result"`
	Exam      Exam       `json:"exam"`
	Questions []Question `json:"questions"`
	Passed    bool       `json:"passed"`
}
