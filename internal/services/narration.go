package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/quicklyapp/quickly-backend/internal/logger"
)

const narrationMaxWords = 35

// Roughly 25-35 words each, about 10-15 seconds of speech at a normal rate.
// The explanation teaches the concept rather than reading the caption back.
var narrationTemplates = []string{
	"Here's a key concept about %[1]s. %[2]s demonstrates how this works in practice. Understanding this helps you grasp the fundamentals.",
	"Let me explain %[1]s. What you're seeing here with %[2]s is a great example of this principle in action.",
	"This is an important aspect of %[1]s. The %[2]s shown here illustrates the core concept perfectly.",
	"Understanding %[1]s becomes clearer when you see %[2]s. This visual representation helps connect theory to reality.",
}

// NarrationService decides which posts get an audio overlay and produces the
// narration asset for them.
type NarrationService interface {
	ShouldNarrate(index, batchSize int) bool
	// Narrate returns the public URL of the synthesized clip. Failures are
	// non-fatal for the batch; the caller logs and moves on without audio.
	Narrate(ctx context.Context, topic, imageContext, caption string) (string, error)
}

type narrationService struct {
	log    *logger.Logger
	speech *FallbackResolver
	assets AssetService
}

func NewNarrationService(log *logger.Logger, speech *FallbackResolver, assets AssetService) (NarrationService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if speech == nil {
		return nil, fmt.Errorf("speech resolver required")
	}
	if assets == nil {
		return nil, fmt.Errorf("asset service required")
	}
	return &narrationService{
		log:    log.With("service", "NarrationService"),
		speech: speech,
		assets: assets,
	}, nil
}

// ShouldNarrate selects roughly 2 of every 5 posts by position alone: odd
// indices 1, 3, 5, ... capped at floor(2*batchSize/5) selections. For a
// batch of 5 that is exactly {1, 3}; a batch of 1 gets none. Deterministic
// so selection sets can be asserted exactly.
func (s *narrationService) ShouldNarrate(index, batchSize int) bool {
	if batchSize <= 0 || index < 0 || index >= batchSize {
		return false
	}
	quota := batchSize * 2 / 5
	if index%2 != 1 {
		return false
	}
	return index/2 < quota
}

func (s *narrationService) Narrate(ctx context.Context, topic, imageContext, caption string) (string, error) {
	text := explanationText(topic, imageContext)

	asset, err := s.speech.Resolve(ctx, text)
	if err != nil {
		return "", err
	}

	// Same topic and image context always map to the same clip key.
	key := AssetKey("audio", topic+imageContext) + ".mp3"
	url, err := s.assets.PersistBytes(ctx, asset.Bytes, "audio/mpeg", key)
	if err != nil {
		return "", err
	}
	s.log.Debug("Narration generated", "provider", asset.Provider, "key", key)
	return url, nil
}

// explanationText picks a template by a hash of the image context — not the
// caption — so the same visual always yields the same wording, and caps the
// result at ~35 words.
func explanationText(topic, imageContext string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(imageContext))
	tmpl := narrationTemplates[int(h.Sum32())%len(narrationTemplates)]

	explanation := fmt.Sprintf(tmpl, topic, imageContext)
	words := strings.Fields(explanation)
	if len(words) > narrationMaxWords {
		explanation = strings.Join(words[:narrationMaxWords], " ") + "."
	}
	return explanation
}
