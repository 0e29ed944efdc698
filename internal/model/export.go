package model

import "time"

// ResultsExport is the top-level JSON structure for result export.
type ResultsExport struct {
	ExportedAt time.Time      `json:"exported_at"`
	NumResults int            `json:"num_results"`
	Results    []ResultExport `json:"results"`
}

// ResultExport holds one persisted result with its exam context for export.
type ResultExport struct {
	ResultID    string           `json:"result_id"`
	ExamID      string           `json:"exam_id"`
	ExamTitle   string           `json:"exam_title"`
	UserID      string           `json:"user_id"`
	UserEmail   string           `json:"user_email"`
	DisplayName string           `json:"display_name"`
	Score       int              `json:"score"`
	Passed      bool             `json:"passed"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Questions   []QuestionExport `json:"questions"`
}

// QuestionExport holds per-question outcome data for export.
type QuestionExport struct {
	QuestionText  string `json:"question_text"`
	Subject       string `json:"subject"`
	Department    string `json:"department"`
	CorrectAnswer string `json:"correct_answer"`
	GivenAnswer   string `json:"given_answer,omitempty"`
	Correct       bool   `json:"correct"`
}
