package services

import (
	"context"
	"encoding/json"
	"errors"
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
	flashcardMaxTokens   = 1024
	flashcardTemperature = 0.7
	flashcardTitleMax    = 50
)

// ErrInvalidInput is returned when a request carries no usable text.
var ErrInvalidInput = errors.New("input text must not be empty")

// FlashcardResult is a titled set of generated cards.
type FlashcardResult struct {
	Title string              `json:"title"`
	Cards []recovery.CardDraft `json:"flashcards"`
}

// FlashcardService turns free-form study text into a set of flashcards.
type FlashcardService interface {
	Generate(ctx context.Context, text string) (*FlashcardResult, error)
}

type flashcardService struct {
	log       *logger.Logger
	ai        openai.Client
	sets      repos.FlashcardSetRepo
	queryLogs repos.QueryLogRepo
}

func NewFlashcardService(log *logger.Logger, ai openai.Client, sets repos.FlashcardSetRepo, queryLogs repos.QueryLogRepo) (FlashcardService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &flashcardService{
		log:       log.With("service", "FlashcardService"),
		ai:        ai,
		sets:      sets,
		queryLogs: queryLogs,
	}, nil
}

func (s *flashcardService) Generate(ctx context.Context, text string) (*FlashcardResult, error) {
	source := strings.TrimSpace(text)
	if source == "" {
		return nil, ErrInvalidInput
	}

	raw, err := s.ai.GenerateText(ctx, buildFlashcardPrompt(source), flashcardMaxTokens, flashcardTemperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	cards := recovery.Flashcards(raw, source)
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no usable flashcards", ErrGenerationFailed)
	}

	result := &FlashcardResult{
		Title: setTitle(cards, source),
		Cards: cards,
	}
	s.persist(ctx, result, source)
	return result, nil
}

// setTitle picks the first card topic that is not a generic placeholder,
// falling back to a topic derived from the source text. Long titles are
// truncated to 50 characters.
func setTitle(cards []recovery.CardDraft, source string) string {
	title := ""
	for _, c := range cards {
		if !genericTopic(c.Topic) {
			title = c.Topic
			break
		}
	}
	if title == "" {
		title = recovery.DeriveTopic(source)
	}
	if r := []rune(title); len(r) > flashcardTitleMax {
		title = string(r[:flashcardTitleMax-3]) + "..."
	}
	return title
}

func genericTopic(topic string) bool {
	switch strings.ToLower(strings.TrimSpace(topic)) {
	case "", "study notes", "overview", "introduction", "summary", "notes":
		return true
	}
	return false
}

func (s *flashcardService) persist(ctx context.Context, result *FlashcardResult, source string) {
	if s.sets == nil {
		return
	}
	raw, err := json.Marshal(result.Cards)
	if err != nil {
		return
	}
	if _, err := s.sets.Create(ctx, nil, &types.FlashcardSet{
		Title:      result.Title,
		Cards:      datatypes.JSON(raw),
		SourceText: source,
	}); err != nil {
		s.log.Warn("Persisting flashcard set failed", "title", result.Title, "error", err)
	}
	if s.queryLogs == nil {
		return
	}
	if _, err := s.queryLogs.Create(ctx, nil, &types.QueryLog{
		Query:    "flashcards:" + recovery.DeriveTopic(source),
		Response: datatypes.JSON(raw),
	}); err != nil {
		s.log.Debug("Query log write failed", "error", err)
	}
}

func buildFlashcardPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`Create flashcards from the following study material. For each
distinct concept produce one card with a short "topic" naming the concept and
a clear "explanation" of 1-3 sentences.

Respond in pure JSON with the format:
{
  "flashcards": [
    {"topic": "...", "explanation": "..."}
  ]
}

Study material:
`)
	b.WriteString(text)
	return b.String()
}
