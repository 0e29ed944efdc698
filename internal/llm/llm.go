package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flightprep/lms/internal/apperr"
	"github.com/flightprep/lms/internal/model"
)

// NotAnswered is the sentinel used when the student left a question blank.
const NotAnswered = "not answered"

// ExplainRequest describes one question the student wants explained.
type ExplainRequest struct {
	Question      string
	StudentAnswer string
	CorrectAnswer string
	Topic         string
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the LLM endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// ExplainAnswer produces a natural-language rationale for one question,
// contrasting the student's answer with the correct one. Invoked lazily,
// per question, from the results page.
func (c *Client) ExplainAnswer(ctx context.Context, req ExplainRequest) (string, error) {
	if req.StudentAnswer == "" {
		req.StudentAnswer = NotAnswered
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildExplainSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildExplainUserPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", apperr.Dependency("LLM API call", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Dependency("LLM returned no choices", nil)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM explanation response", "raw", raw)

	var result struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", apperr.Dependency("parse LLM response", fmt.Errorf("%w (raw: %s)", err, raw))
	}
	if result.Explanation == "" {
		return "", apperr.Dependency("LLM returned empty explanation", nil)
	}
	return result.Explanation, nil
}

// GenerateQuestions drafts count multiple-choice questions on the given
// subject. Each drafted question is checked for shape before being returned;
// nothing is persisted here.
func (c *Client) GenerateQuestions(ctx context.Context, department, subject string, count int) ([]model.Question, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGenerateSystemPrompt(count)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Department: %s\nSubject: %s", department, subject)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, apperr.Dependency("LLM API call", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.Dependency("LLM returned no choices", nil)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	var result struct {
		Questions []struct {
			QuestionText  string   `json:"question_text"`
			Options       []string `json:"options"`
			CorrectAnswer string   `json:"correct_answer"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, apperr.Dependency("parse LLM response", fmt.Errorf("%w (raw: %s)", err, raw))
	}

	questions := make([]model.Question, 0, len(result.Questions))
	for i, gq := range result.Questions {
		q := model.Question{
			QuestionText:  gq.QuestionText,
			Options:       gq.Options,
			CorrectAnswer: gq.CorrectAnswer,
			Department:    department,
			Subject:       subject,
		}
		if q.QuestionText == "" {
			return nil, apperr.Dependency(fmt.Sprintf("generated question %d has no text", i+1), nil)
		}
		if len(q.Options) != 4 {
			return nil, apperr.Dependency(fmt.Sprintf("generated question %d has %d options, want 4", i+1, len(q.Options)), nil)
		}
		if !q.HasOption(q.CorrectAnswer) {
			return nil, apperr.Dependency(fmt.Sprintf("generated question %d: correct answer not among options", i+1), nil)
		}
		questions = append(questions, q)
	}
	if len(questions) < count {
		return nil, apperr.Dependency(fmt.Sprintf("LLM produced %d questions, want %d", len(questions), count), nil)
	}
	return questions[:count], nil
}

func buildExplainSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a tutor at an aviation training college. A student has finished an exam ")
	sb.WriteString("and wants to understand one of the questions.\n\n")
	sb.WriteString("Explain why the correct answer is correct. If the student answered differently, ")
	sb.WriteString("briefly address why their choice is wrong. If the student did not answer, just ")
	sb.WriteString("explain the correct answer.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"explanation": "<clear explanation in 2-5 sentences>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildExplainUserPrompt(req ExplainRequest) string {
	var sb strings.Builder
	sb.WriteString("TOPIC: " + req.Topic + "\n\n")
	sb.WriteString("QUESTION: " + req.Question + "\n\n")
	sb.WriteString("STUDENT ANSWER: " + req.StudentAnswer + "\n\n")
	sb.WriteString("CORRECT ANSWER: " + req.CorrectAnswer + "\n")
	return sb.String()
}

func buildGenerateSystemPrompt(count int) string {
	var sb strings.Builder
	sb.WriteString("You are an exam author at an aviation training college. ")
	sb.WriteString(fmt.Sprintf("Write %d multiple-choice questions for the department and subject given by the user.\n\n", count))
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Each question has exactly 4 options.\n")
	sb.WriteString("- The correct_answer field must repeat one of the options verbatim.\n")
	sb.WriteString("- Questions must be factual and unambiguous.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"questions": [{"question_text": "<text>", "options": ["<a>", "<b>", "<c>", "<d>"], "correct_answer": "<one of the options>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}
