package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quicklyapp/quickly-backend/internal/clients/openai"
	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/recovery"
)

// ErrGenerationFailed is returned when the model produced nothing the
// recovery layer could turn into usable drafts.
var ErrGenerationFailed = errors.New("content generation failed")

const (
	planMaxTokens   = 2000
	planTemperature = 0.7
)

// PlannerService builds the content plan for a topic: an ordered list of
// post drafts with captions, flashcards, and image prompts.
type PlannerService interface {
	Plan(ctx context.Context, topic string, count int) ([]recovery.PostDraft, error)
}

type plannerService struct {
	log *logger.Logger
	ai  openai.Client
}

func NewPlannerService(log *logger.Logger, ai openai.Client) (PlannerService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &plannerService{
		log: log.With("service", "PlannerService"),
		ai:  ai,
	}, nil
}

func (s *plannerService) Plan(ctx context.Context, topic string, count int) ([]recovery.PostDraft, error) {
	prompt := buildPlanPrompt(topic, count)

	raw, err := s.ai.GenerateText(ctx, prompt, planMaxTokens, planTemperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	drafts := recovery.PostDrafts(raw, topic)
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no usable drafts for topic %q", ErrGenerationFailed, topic)
	}
	if len(drafts) < count {
		s.log.Warn("Model returned fewer usable drafts than requested",
			"topic", topic, "requested", count, "usable", len(drafts))
	}
	return drafts, nil
}

func buildPlanPrompt(topic string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d educational social media posts about '%s'.\n", count, topic)
	b.WriteString(`Each post should include:
1. "caption": a short, catchy 1-2 sentence explanation
2. "flashcard": an object with "question" and "answer"
3. "image_prompt": a vivid description for an illustration

Respond in pure JSON with the format:
{
  "posts": [
    {
      "caption": "...",
      "flashcard": {"question": "...", "answer": "..."},
      "image_prompt": "..."
    }
  ]
}
`)
	return b.String()
}
