package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/auth"
	appI18n "github.com/flightprep/lms/internal/i18n"
	"github.com/flightprep/lms/internal/llm"
	"github.com/flightprep/lms/internal/model"
	"github.com/flightprep/lms/internal/session"
	"github.com/flightprep/lms/internal/store"
)

// Config holds runtime parameters set via CLI flags.
type Config struct {
	PassThreshold int // default pass percentage for new exams
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	llm      *llm.Client
	sessions *session.Manager
	auth     *auth.Authenticator
	validate *validator.Validate
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, m *session.Manager, a *auth.Authenticator, cfg Config) *Handler {
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = session.DefaultPassThreshold
	}
	return &Handler{
		store:    s,
		llm:      l,
		sessions: m,
		auth:     a,
		validate: validator.New(),
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAuth)

		r.Get("/api/exams", h.handleListExams)
		r.Get("/api/exams/{examID}", h.handleGetExam)
		r.Get("/api/subjects", h.handleListSubjects)
		r.Post("/api/exams/{examID}/sessions", h.handleStartSession)
		r.Get("/api/sessions/{sessionID}", h.handleGetSession)
		r.Post("/api/sessions/{sessionID}/answers", h.handleAnswer)
		r.Post("/api/sessions/{sessionID}/next", h.handleNext)
		r.Post("/api/sessions/{sessionID}/previous", h.handlePrevious)
		r.Post("/api/sessions/{sessionID}/submit", h.handleSubmit)
		r.Get("/api/results", h.handleMyResults)
		r.Get("/api/results/{resultID}", h.handleGetResult)
		r.Post("/api/results/{resultID}/explain", h.handleExplain)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(model.UserRoleAdmin))
			r.Post("/api/admin/questions", h.handleAddQuestion)
			r.Get("/api/admin/questions", h.handleAdminListQuestions)
			r.Post("/api/admin/exams", h.handleCreateExam)
			r.Post("/api/admin/exams/generate", h.handleGenerateExam)
		})
	})
}

// questionView is a question as shown to a learner mid-exam: the correct
// answer never leaves the server before submission.
type questionView struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Department   string   `json:"department"`
	Subject      string   `json:"subject"`
}

func toQuestionViews(questions []model.Question) []questionView {
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Department:   q.Department,
			Subject:      q.Subject,
		})
	}
	return views
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		respondError(w, apperr.Dependency("list exams", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exams": exams})
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.store.GetExam(chi.URLParam(r, "examID"))
	if err != nil {
		if apperr.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, adminResponse{Success: false, Message: appI18n.T(r.Context(), "ExamNotFound")})
			return
		}
		respondError(w, apperr.Dependency("get exam", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exam": exam})
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListDistinctSubjects(r.URL.Query().Get("department"))
	if err != nil {
		respondError(w, apperr.Dependency("list subjects", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	exam, err := h.store.GetExam(chi.URLParam(r, "examID"))
	if err != nil {
		if apperr.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, adminResponse{Success: false, Message: appI18n.T(r.Context(), "ExamNotFound")})
			return
		}
		respondError(w, apperr.Dependency("get exam", err))
		return
	}

	fetched, err := h.store.GetQuestionsByIDs(exam.QuestionIDs)
	if err != nil {
		respondError(w, apperr.Dependency("fetch questions", err))
		return
	}
	// Reorder to the exam's sequence; referential integrity is best-effort,
	// so unresolved IDs are logged and skipped.
	byID := make(map[string]model.Question, len(fetched))
	for _, q := range fetched {
		byID[q.ID] = q
	}
	questions := make([]model.Question, 0, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			slog.Warn("exam references missing question", "exam_id", exam.ID, "question_id", id)
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		respondJSON(w, http.StatusBadRequest, adminResponse{Success: false, Message: appI18n.T(r.Context(), "ExamEmpty")})
		return
	}

	ctrl, err := h.sessions.Start(exam, questions, user.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"session":   ctrl.Snapshot(),
		"questions": toQuestionViews(questions),
	})
}

// ownedSession looks up a live session and checks it belongs to the caller.
func (h *Handler) ownedSession(r *http.Request) (*session.Controller, error) {
	ctrl, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, err
	}
	user := model.UserFromContext(r.Context())
	if user == nil || ctrl.UserID() != user.ID {
		// Do not reveal other learners' sessions.
		return nil, apperr.NotFound("session")
	}
	return ctrl, nil
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.ownedSession(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": ctrl.Snapshot()})
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.ownedSession(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		QuestionID     string `json:"question_id" validate:"required"`
		SelectedOption string `json:"selected_option" validate:"required"`
	}
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := ctrl.SelectAnswer(req.QuestionID, req.SelectedOption); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": ctrl.Snapshot()})
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.ownedSession(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := ctrl.Next(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": ctrl.Snapshot()})
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.ownedSession(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := ctrl.Previous(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": ctrl.Snapshot()})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.ownedSession(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := ctrl.Submit()
	if err != nil {
		respondError(w, err)
		return
	}
	h.sessions.Remove(ctrl.ID())

	exam := ctrl.Exam()
	respondJSON(w, http.StatusOK, map[string]any{
		"result_id": result.ID,
		"score":     result.Score,
		"passed":    session.Passed(result.Score, exam.PassThreshold),
	})
}

func (h *Handler) handleMyResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	results, err := h.store.ListResultsByUser(user.ID)
	if err != nil {
		respondError(w, apperr.Dependency("list results", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ownedResult fetches a result and checks the caller may read it.
func (h *Handler) ownedResult(r *http.Request) (model.ExamResult, error) {
	result, err := h.store.GetResult(chi.URLParam(r, "resultID"))
	if err != nil {
		return result, err
	}
	user := model.UserFromContext(r.Context())
	if user == nil || (result.UserID != user.ID && user.Role != model.UserRoleAdmin) {
		return result, apperr.NotFound("result")
	}
	return result, nil
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.ownedResult(r)
	if err != nil {
		if apperr.IsNotFound(err) {
			respondJSON(w, http.StatusNotFound, adminResponse{Success: false, Message: appI18n.T(r.Context(), "ResultNotFound")})
			return
		}
		respondError(w, err)
		return
	}

	view := model.ResultView{Result: result}
	exam, err := h.store.GetExam(result.ExamID)
	if err == nil {
		view.Exam = exam
		view.Passed = session.Passed(result.Score, exam.PassThreshold)
		questions, err := h.store.GetQuestionsByIDs(exam.QuestionIDs)
		if err != nil {
			respondError(w, apperr.Dependency("fetch questions", err))
			return
		}
		view.Questions = questions
	} else if !apperr.IsNotFound(err) {
		respondError(w, apperr.Dependency("get exam", err))
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	result, err := h.ownedResult(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		QuestionID string `json:"question_id" validate:"required"`
	}
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	question, err := h.store.GetQuestion(req.QuestionID)
	if err != nil {
		respondError(w, err)
		return
	}

	explanation, err := h.llm.ExplainAnswer(r.Context(), llm.ExplainRequest{
		Question:      question.QuestionText,
		StudentAnswer: result.Answers[question.ID],
		CorrectAnswer: question.CorrectAnswer,
		Topic:         question.Subject,
	})
	if err != nil {
		slog.Error("explanation failed", "result_id", result.ID, "question_id", question.ID, "error", err)
		respondJSON(w, http.StatusBadGateway, adminResponse{Success: false, Message: appI18n.T(r.Context(), "ExplainUnavailable")})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"explanation": explanation})
}
