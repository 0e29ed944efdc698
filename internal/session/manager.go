package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// Manager owns all live sessions in the process. Each session is exclusive
// to one learner; sessions are independent and never shared across users.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	sink     ResultSink
}

// NewManager creates an empty session manager writing results to sink.
func NewManager(sink ResultSink) *Manager {
	return &Manager{
		sessions: make(map[string]*Controller),
		sink:     sink,
	}
}

// Start creates a new in-progress session for the user and registers it.
func (m *Manager) Start(exam model.Exam, questions []model.Question, userID string) (*Controller, error) {
	id := uuid.NewString()
	ctrl, err := NewController(id, exam, questions, userID, m.sink)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()
	slog.Info("started exam session", "session_id", id, "exam_id", exam.ID, "user_id", userID)
	return ctrl, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session")
	}
	return ctrl, nil
}

// Remove drops a session from the registry.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run drives session countdowns until ctx is cancelled: one tick per second
// per in-progress session, and eviction of submitted sessions.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep applies one countdown tick to every live session and evicts the
// ones that have been submitted.
func (m *Manager) Sweep() {
	m.mu.Lock()
	ctrls := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		ctrls = append(ctrls, c)
	}
	m.mu.Unlock()

	for _, c := range ctrls {
		forced, err := c.Tick()
		if forced {
			if err != nil {
				slog.Error("timer-forced submit failed", "session_id", c.ID(), "error", err)
			} else {
				slog.Info("timer-forced submit", "session_id", c.ID(), "exam_id", c.Exam().ID)
			}
		}
		if c.State() == StateSubmitted {
			m.Remove(c.ID())
		}
	}
}
