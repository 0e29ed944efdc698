package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// addQuestionRequest accepts manually authored questions, which may carry
// any number of options from two up.
type addQuestionRequest struct {
	QuestionText  string   `json:"question_text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,unique,dive,required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Department    string   `json:"department" validate:"required"`
	Subject       string   `json:"subject" validate:"required"`
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	q := model.Question{
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Department:    req.Department,
		Subject:       req.Subject,
	}
	if !q.HasOption(q.CorrectAnswer) {
		respondError(w, apperr.Validation("correct answer must be one of the options"))
		return
	}

	id, err := h.store.InsertQuestion(q)
	if err != nil {
		respondError(w, apperr.Dependency("insert question", err))
		return
	}

	slog.Info("question added", "question_id", id, "department", q.Department, "subject", q.Subject)
	respondJSON(w, http.StatusCreated, adminResponse{
		Success:    true,
		Message:    "question added",
		QuestionID: id,
	})
}

func (h *Handler) handleAdminListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.store.ListQuestions(
		r.URL.Query().Get("department"),
		r.URL.Query().Get("subject"),
	)
	if err != nil {
		respondError(w, apperr.Dependency("list questions", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type createExamRequest struct {
	Title         string   `json:"title" validate:"required"`
	Description   string   `json:"description"`
	Duration      int      `json:"duration" validate:"required,gt=0"`
	QuestionIDs   []string `json:"question_ids" validate:"required,min=1,unique,dive,required"`
	PassThreshold int      `json:"pass_threshold" validate:"omitempty,gt=0,lte=100"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	// Every referenced question must exist before the exam is created.
	questions, err := h.store.GetQuestionsByIDs(req.QuestionIDs)
	if err != nil {
		respondError(w, apperr.Dependency("fetch questions", err))
		return
	}
	if len(questions) != len(req.QuestionIDs) {
		respondError(w, apperr.Validation("%d of %d referenced questions do not exist",
			len(req.QuestionIDs)-len(questions), len(req.QuestionIDs)))
		return
	}

	threshold := req.PassThreshold
	if threshold == 0 {
		threshold = h.config.PassThreshold
	}

	id, err := h.store.CreateExam(model.Exam{
		Title:         req.Title,
		Description:   req.Description,
		Duration:      req.Duration,
		QuestionIDs:   req.QuestionIDs,
		PassThreshold: threshold,
	})
	if err != nil {
		respondError(w, apperr.Dependency("create exam", err))
		return
	}

	slog.Info("exam created", "exam_id", id, "title", req.Title, "questions", len(req.QuestionIDs))
	respondJSON(w, http.StatusCreated, adminResponse{
		Success: true,
		Message: fmt.Sprintf("exam created with %d questions", len(req.QuestionIDs)),
		ExamID:  id,
	})
}

type generateExamRequest struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	Duration      int    `json:"duration" validate:"required,gt=0"`
	Department    string `json:"department" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	QuestionCount int    `json:"question_count" validate:"required,gt=0,lte=50"`
	PassThreshold int    `json:"pass_threshold" validate:"omitempty,gt=0,lte=100"`
}

// handleGenerateExam drafts questions with the LLM and inserts them together
// with the referencing exam in one transaction, so a failure leaves no
// orphaned questions behind.
func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req generateExamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	questions, err := h.llm.GenerateQuestions(r.Context(), req.Department, req.Subject, req.QuestionCount)
	if err != nil {
		slog.Error("question generation failed", "subject", req.Subject, "error", err)
		respondError(w, err)
		return
	}

	threshold := req.PassThreshold
	if threshold == 0 {
		threshold = h.config.PassThreshold
	}

	id, err := h.store.CreateExamWithQuestions(model.Exam{
		Title:         req.Title,
		Description:   req.Description,
		Duration:      req.Duration,
		PassThreshold: threshold,
	}, questions)
	if err != nil {
		respondError(w, apperr.Dependency("create exam", err))
		return
	}

	slog.Info("exam generated", "exam_id", id, "subject", req.Subject, "questions", len(questions))
	respondJSON(w, http.StatusCreated, adminResponse{
		Success: true,
		Message: fmt.Sprintf("exam generated with %d questions", len(questions)),
		ExamID:  id,
	})
}
