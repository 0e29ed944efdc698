// Package session holds a learner's in-progress exam attempt. Sessions live
// only in memory: navigating away before submit discards the attempt with no
// persisted trace, and only the derived result survives submission.
package session

import (
	"sync"
	"time"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

// ResultSink persists the outcome of a submitted session.
type ResultSink interface {
	CreateResult(r model.ExamResult) (string, error)
}

// Controller steps a learner through an ordered question sequence under a
// time budget. All methods are safe for concurrent use; request handlers
// and the manager's tick loop share one controller per session.
type Controller struct {
	mu sync.Mutex

	id        string
	userID    string
	exam      model.Exam
	questions []model.Question

	idx       int
	answers   map[string]string
	remaining int // seconds
	startedAt time.Time
	state     State

	sink            ResultSink
	resultID        string
	submitErr       error
	submittedResult *model.ExamResult
}

// NewController creates an in-progress session over the exam's questions.
func NewController(id string, exam model.Exam, questions []model.Question, userID string, sink ResultSink) (*Controller, error) {
	if len(questions) == 0 {
		return nil, apperr.Validation("exam has no questions")
	}
	if exam.Duration <= 0 {
		return nil, apperr.Validation("exam duration must be positive")
	}
	return &Controller{
		id:        id,
		userID:    userID,
		exam:      exam,
		questions: questions,
		answers:   make(map[string]string),
		remaining: exam.Duration * 60,
		startedAt: time.Now(),
		state:     StateInProgress,
		sink:      sink,
	}, nil
}

// ID returns the session's opaque identifier.
func (c *Controller) ID() string { return c.id }

// UserID returns the owning learner's ID.
func (c *Controller) UserID() string { return c.userID }

// Exam returns the exam this session runs.
func (c *Controller) Exam() model.Exam { return c.exam }

// Questions returns the session's ordered question set.
func (c *Controller) Questions() []model.Question { return c.questions }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectAnswer records (or overwrites) the learner's answer for a question.
func (c *Controller) SelectAnswer(questionID, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return apperr.Validation("session already submitted")
	}
	found := false
	for _, q := range c.questions {
		if q.ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return apperr.Validation("question does not belong to this session")
	}
	c.answers[questionID] = option
	return nil
}

// Next advances to the following question. Rejected at the last question.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return apperr.Validation("session already submitted")
	}
	if c.idx >= len(c.questions)-1 {
		return apperr.Validation("already at the last question")
	}
	c.idx++
	return nil
}

// Previous moves back one question. Rejected at the first question.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return apperr.Validation("session already submitted")
	}
	if c.idx <= 0 {
		return apperr.Validation("already at the first question")
	}
	c.idx--
	return nil
}

// Tick counts down one second of the time budget. When the budget reaches
// zero the session is force-submitted, scoring whatever answers exist.
// It reports whether this tick triggered the submission.
func (c *Controller) Tick() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return false, nil
	}
	c.remaining--
	if c.remaining > 0 {
		return false, nil
	}
	c.remaining = 0
	_, err := c.submitLocked()
	return true, err
}

// Submit scores the session and writes the result. Idempotent: a second
// call performs no further write and returns the first outcome.
func (c *Controller) Submit() (model.ExamResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked()
}

func (c *Controller) submitLocked() (model.ExamResult, error) {
	if c.state == StateSubmitted {
		return c.resultLocked(), c.submitErr
	}
	c.state = StateSubmitted

	score, err := Score(c.answers, c.questions)
	if err != nil {
		c.submitErr = err
		return model.ExamResult{}, err
	}

	result := model.ExamResult{
		ExamID:      c.exam.ID,
		UserID:      c.userID,
		ExamTitle:   c.exam.Title,
		Answers:     copyAnswers(c.answers),
		Score:       score,
		SubmittedAt: time.Now(),
	}

	id, err := c.sink.CreateResult(result)
	if err != nil {
		// The session stays submitted; the write is not retried here.
		c.submitErr = apperr.Dependency("persist result", err)
		return model.ExamResult{}, c.submitErr
	}
	result.ID = id
	c.resultID = id
	c.answers = result.Answers
	c.submittedResult = &result
	return result, nil
}

func (c *Controller) resultLocked() model.ExamResult {
	if c.submittedResult != nil {
		return *c.submittedResult
	}
	return model.ExamResult{}
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	ID            string            `json:"id"`
	ExamID        string            `json:"exam_id"`
	State         State             `json:"state"`
	QuestionIndex int               `json:"question_index"`
	QuestionCount int               `json:"question_count"`
	Answers       map[string]string `json:"answers"`
	TimeRemaining int               `json:"time_remaining"`
	StartedAt     time.Time         `json:"started_at"`
	ResultID      string            `json:"result_id,omitempty"`
}

// Snapshot returns a consistent copy of the session's current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:            c.id,
		ExamID:        c.exam.ID,
		State:         c.state,
		QuestionIndex: c.idx,
		QuestionCount: len(c.questions),
		Answers:       copyAnswers(c.answers),
		TimeRemaining: c.remaining,
		StartedAt:     c.startedAt,
		ResultID:      c.resultID,
	}
}

func copyAnswers(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
