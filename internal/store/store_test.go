package store

import (
	"reflect"
	"sort"
	"testing"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestQuestion(t *testing.T, s *Store, text, department, subject string) string {
	t.Helper()
	id, err := s.InsertQuestion(model.Question{
		QuestionText:  text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: "A",
		Department:    department,
		Subject:       subject,
	})
	if err != nil {
		t.Fatalf("insertTestQuestion: %v", err)
	}
	return id
}

func TestQuestionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions, got %d", count)
	}

	in := model.Question{
		QuestionText:  "What is the standard sea-level pressure?",
		Options:       []string{"1003 hPa", "1013 hPa", "1023 hPa", "1033 hPa"},
		CorrectAnswer: "1013 hPa",
		Department:    "flight-ops",
		Subject:       "meteorology",
	}
	id, err := s.InsertQuestion(in)
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty ID")
	}

	got, err := s.GetQuestion(id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if got.QuestionText != in.QuestionText {
		t.Errorf("text = %q, want %q", got.QuestionText, in.QuestionText)
	}
	if !reflect.DeepEqual(got.Options, in.Options) {
		t.Errorf("options = %v, want %v", got.Options, in.Options)
	}
	if got.CorrectAnswer != in.CorrectAnswer {
		t.Errorf("correct answer = %q, want %q", got.CorrectAnswer, in.CorrectAnswer)
	}
	if got.Department != in.Department || got.Subject != in.Subject {
		t.Errorf("department/subject = %q/%q, want %q/%q", got.Department, got.Subject, in.Department, in.Subject)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	// Not found.
	_, err = s.GetQuestion("nonexistent")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestGetQuestionsByIDs(t *testing.T) {
	s := newTestStore(t)
	q1 := insertTestQuestion(t, s, "Q1", "d1", "s1")
	q2 := insertTestQuestion(t, s, "Q2", "d1", "s2")
	insertTestQuestion(t, s, "Q3", "d2", "s3")

	qs, err := s.GetQuestionsByIDs([]string{q1, q2})
	if err != nil {
		t.Fatalf("GetQuestionsByIDs: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}

	// Unknown IDs are silently absent (best-effort fetch).
	qs, err = s.GetQuestionsByIDs([]string{q1, "missing"})
	if err != nil {
		t.Fatalf("GetQuestionsByIDs with missing: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}

	qs, err = s.GetQuestionsByIDs(nil)
	if err != nil {
		t.Fatalf("GetQuestionsByIDs(nil): %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("expected 0 questions, got %d", len(qs))
	}
}

func TestListQuestionsFiltered(t *testing.T) {
	s := newTestStore(t)
	insertTestQuestion(t, s, "Q1", "flight-ops", "navigation")
	insertTestQuestion(t, s, "Q2", "flight-ops", "meteorology")
	insertTestQuestion(t, s, "Q3", "engineering", "navigation")

	tests := []struct {
		name       string
		department string
		subject    string
		wantCount  int
	}{
		{"no filter", "", "", 3},
		{"by department", "flight-ops", "", 2},
		{"by subject", "", "navigation", 2},
		{"by both", "flight-ops", "navigation", 1},
		{"no match", "engineering", "meteorology", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := s.ListQuestions(tt.department, tt.subject)
			if err != nil {
				t.Fatalf("ListQuestions: %v", err)
			}
			if len(qs) != tt.wantCount {
				t.Errorf("expected %d questions, got %d", tt.wantCount, len(qs))
			}
		})
	}
}

func TestListDistinctSubjects(t *testing.T) {
	s := newTestStore(t)

	subjects, err := s.ListDistinctSubjects("")
	if err != nil {
		t.Fatalf("ListDistinctSubjects: %v", err)
	}
	if len(subjects) != 0 {
		t.Errorf("expected 0 subjects, got %d", len(subjects))
	}

	insertTestQuestion(t, s, "Q1", "flight-ops", "navigation")
	insertTestQuestion(t, s, "Q2", "flight-ops", "navigation")
	insertTestQuestion(t, s, "Q3", "flight-ops", "meteorology")
	insertTestQuestion(t, s, "Q4", "engineering", "systems")

	subjects, err = s.ListDistinctSubjects("flight-ops")
	if err != nil {
		t.Fatalf("ListDistinctSubjects: %v", err)
	}
	if !reflect.DeepEqual(subjects, []string{"meteorology", "navigation"}) {
		t.Errorf("expected [meteorology navigation], got %v", subjects)
	}

	subjects, _ = s.ListDistinctSubjects("")
	if len(subjects) != 3 {
		t.Errorf("expected 3 distinct subjects, got %d: %v", len(subjects), subjects)
	}
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)
	q1 := insertTestQuestion(t, s, "Q1", "d", "s")
	q2 := insertTestQuestion(t, s, "Q2", "d", "s")

	id, err := s.CreateExam(model.Exam{
		Title:         "PPL Mock",
		Description:   "Practice exam",
		Duration:      45,
		QuestionIDs:   []string{q1, q2},
		PassThreshold: 75,
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	got, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Title != "PPL Mock" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Duration != 45 {
		t.Errorf("duration = %d, want 45", got.Duration)
	}
	if got.QuestionCount != 2 {
		t.Errorf("question count = %d, want 2", got.QuestionCount)
	}
	if !reflect.DeepEqual(got.QuestionIDs, []string{q1, q2}) {
		t.Errorf("question IDs = %v, order not preserved", got.QuestionIDs)
	}
	if got.PassThreshold != 75 {
		t.Errorf("pass threshold = %d, want 75", got.PassThreshold)
	}

	_, err = s.GetExam("missing")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 1 {
		t.Errorf("expected 1 exam, got %d", len(exams))
	}
}

func TestCreateExamWithQuestions(t *testing.T) {
	s := newTestStore(t)

	drafted := []model.Question{
		{QuestionText: "G1", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "B", Department: "d", Subject: "s"},
		{QuestionText: "G2", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "C", Department: "d", Subject: "s"},
	}
	id, err := s.CreateExamWithQuestions(model.Exam{
		Title:         "Generated",
		Duration:      30,
		PassThreshold: 75,
	}, drafted)
	if err != nil {
		t.Fatalf("CreateExamWithQuestions: %v", err)
	}

	exam, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.QuestionCount != 2 {
		t.Fatalf("question count = %d, want 2", exam.QuestionCount)
	}

	// The drafted questions landed in the bank with the exam's IDs.
	qs, err := s.GetQuestionsByIDs(exam.QuestionIDs)
	if err != nil {
		t.Fatalf("GetQuestionsByIDs: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	texts := []string{qs[0].QuestionText, qs[1].QuestionText}
	sort.Strings(texts)
	if !reflect.DeepEqual(texts, []string{"G1", "G2"}) {
		t.Errorf("question texts = %v", texts)
	}

	count, _ := s.QuestionCount()
	if count != 2 {
		t.Errorf("bank count = %d, want 2", count)
	}
}

func TestResultLifecycle(t *testing.T) {
	s := newTestStore(t)

	r := model.ExamResult{
		ExamID:    "exam-1",
		UserID:    "user-1",
		ExamTitle: "PPL Mock",
		Answers:   map[string]string{"q1": "A", "q2": "C"},
		Score:     67,
	}
	id, err := s.CreateResult(r)
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	got, err := s.GetResult(id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Score != 67 {
		t.Errorf("score = %d, want 67", got.Score)
	}
	if !reflect.DeepEqual(got.Answers, r.Answers) {
		t.Errorf("answers = %v, want %v", got.Answers, r.Answers)
	}

	_, err = s.GetResult("missing")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	results, err := s.ListResultsByUser("user-1")
	if err != nil {
		t.Fatalf("ListResultsByUser: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}

	results, _ = s.ListResultsByUser("someone-else")
	if len(results) != 0 {
		t.Errorf("expected 0 results for other user, got %d", len(results))
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id, err := s.CreateUser(model.User{
		Email:        "student@flightprep.local",
		DisplayName:  "Student",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.Email != "student@flightprep.local" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("role = %q", u.Role)
	}

	u, err = s.GetUserByEmail("student@flightprep.local")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u == nil || u.ID != id {
		t.Fatalf("unexpected user by email: %+v", u)
	}

	u, err = s.GetUserByEmail("missing@flightprep.local")
	if err != nil {
		t.Fatalf("GetUserByEmail missing: %v", err)
	}
	if u != nil {
		t.Error("expected nil for missing user")
	}

	// Duplicate email is rejected by the unique constraint.
	_, err = s.CreateUser(model.User{
		Email:        "student@flightprep.local",
		DisplayName:  "Dup",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err == nil {
		t.Error("expected error for duplicate email")
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, err = s.GetImportedFileHash("/some/path.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestExportAllResults(t *testing.T) {
	s := newTestStore(t)
	q1 := insertTestQuestion(t, s, "Q1", "d", "s")
	userID, err := s.CreateUser(model.User{
		Email:        "pilot@flightprep.local",
		DisplayName:  "Pilot",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	examID, err := s.CreateExam(model.Exam{
		Title:         "Mock",
		Duration:      30,
		QuestionIDs:   []string{q1},
		PassThreshold: 75,
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	_, err = s.CreateResult(model.ExamResult{
		ExamID:    examID,
		UserID:    userID,
		ExamTitle: "Mock",
		Answers:   map[string]string{q1: "A"},
		Score:     100,
	})
	if err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	export, err := s.ExportAllResults()
	if err != nil {
		t.Fatalf("ExportAllResults: %v", err)
	}
	if export.NumResults != 1 {
		t.Fatalf("num results = %d, want 1", export.NumResults)
	}
	re := export.Results[0]
	if re.UserEmail != "pilot@flightprep.local" {
		t.Errorf("user email = %q", re.UserEmail)
	}
	if !re.Passed {
		t.Error("expected passed with score 100 and threshold 75")
	}
	if len(re.Questions) != 1 || !re.Questions[0].Correct {
		t.Errorf("unexpected question export: %+v", re.Questions)
	}
}
