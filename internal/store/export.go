package store

import (
	"fmt"
	"time"

	"github.com/flightprep/lms/internal/model"
)

// ExportAllResults builds export-ready records for every persisted result,
// joined with the exam's question set and the owning user.
func (s *Store) ExportAllResults() (model.ResultsExport, error) {
	results, err := s.ListResults()
	if err != nil {
		return model.ResultsExport{}, fmt.Errorf("list results: %w", err)
	}

	export := model.ResultsExport{
		ExportedAt: time.Now(),
		NumResults: len(results),
	}

	for _, r := range results {
		re := model.ResultExport{
			ResultID:    r.ID,
			ExamID:      r.ExamID,
			ExamTitle:   r.ExamTitle,
			UserID:      r.UserID,
			Score:       r.Score,
			SubmittedAt: r.SubmittedAt,
		}

		user, err := s.GetUserByID(r.UserID)
		if err != nil {
			return model.ResultsExport{}, fmt.Errorf("get user %s: %w", r.UserID, err)
		}
		if user != nil {
			re.UserEmail = user.Email
			re.DisplayName = user.DisplayName
		}

		exam, err := s.GetExam(r.ExamID)
		if err == nil {
			re.Passed = r.Score >= exam.PassThreshold
			questions, err := s.GetQuestionsByIDs(exam.QuestionIDs)
			if err != nil {
				return model.ResultsExport{}, fmt.Errorf("get questions for exam %s: %w", exam.ID, err)
			}
			for _, q := range questions {
				given := r.Answers[q.ID]
				re.Questions = append(re.Questions, model.QuestionExport{
					QuestionText:  q.QuestionText,
					Subject:       q.Subject,
					Department:    q.Department,
					CorrectAnswer: q.CorrectAnswer,
					GivenAnswer:   given,
					Correct:       given == q.CorrectAnswer,
				})
			}
		}

		export.Results = append(export.Results, re)
	}

	return export, nil
}
