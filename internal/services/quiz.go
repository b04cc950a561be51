package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/quicklyapp/quickly-backend/internal/clients/openai"
	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/recovery"
	"github.com/quicklyapp/quickly-backend/internal/repos"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

const (
	quizMaxTokens   = 2048
	quizTemperature = 0.7
)

// QuizService turns free-form study text into a multiple-choice quiz.
type QuizService interface {
	Generate(ctx context.Context, text string) ([]recovery.QuizDraft, error)
}

type quizService struct {
	log       *logger.Logger
	ai        openai.Client
	queryLogs repos.QueryLogRepo
}

func NewQuizService(log *logger.Logger, ai openai.Client, queryLogs repos.QueryLogRepo) (QuizService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &quizService{
		log:       log.With("service", "QuizService"),
		ai:        ai,
		queryLogs: queryLogs,
	}, nil
}

func (s *quizService) Generate(ctx context.Context, text string) ([]recovery.QuizDraft, error) {
	source := strings.TrimSpace(text)
	if source == "" {
		return nil, ErrInvalidInput
	}

	raw, err := s.ai.GenerateText(ctx, buildQuizPrompt(source), quizMaxTokens, quizTemperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	questions := recovery.QuizQuestions(raw, source)
	s.logQuiz(ctx, source, questions)
	return questions, nil
}

func (s *quizService) logQuiz(ctx context.Context, source string, questions []recovery.QuizDraft) {
	if s.queryLogs == nil {
		return
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return
	}
	if _, err := s.queryLogs.Create(ctx, nil, &types.QueryLog{
		Query:    "quiz:" + recovery.DeriveTopic(source),
		Response: datatypes.JSON(raw),
	}); err != nil {
		s.log.Debug("Query log write failed", "error", err)
	}
}

func buildQuizPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`Create a multiple-choice quiz of 6-8 questions from the
following study material. Each question must have exactly four options and a
"correct_answer" index between 0 and 3.

Respond in pure JSON with the format:
{
  "questions": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": 0}
  ]
}

Study material:
`)
	b.WriteString(text)
	return b.String()
}
