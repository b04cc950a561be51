package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlashcardDraft is the question/answer pair attached to a post draft.
type FlashcardDraft struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PostDraft is one unresolved post recovered from model output. Order within
// the returned slice is the display order.
type PostDraft struct {
	Caption     string          `json:"caption"`
	Flashcard   *FlashcardDraft `json:"flashcard,omitempty"`
	ImagePrompt string          `json:"image_prompt"`
}

type rawPost struct {
	Caption     string          `json:"caption"`
	Flashcard   *FlashcardDraft `json:"flashcard"`
	ImagePrompt string          `json:"image_prompt"`
}

// PostDrafts recovers an ordered slice of post drafts from raw model text.
// Invalid elements are dropped; if none survive, a single synthesized draft
// echoing the raw text is returned so the pipeline always has something to
// work with. Only blank input yields nil.
func PostDrafts(raw, topic string) []PostDraft {
	cleaned := StripReasoning(raw)
	if cleaned == "" {
		return nil
	}

	elements := decodeElements(cleaned, "posts")

	drafts := make([]PostDraft, 0, len(elements))
	for _, raw := range elements {
		var el rawPost
		if json.Unmarshal(raw, &el) != nil {
			continue
		}
		caption := strings.TrimSpace(el.Caption)
		prompt := strings.TrimSpace(el.ImagePrompt)
		if caption == "" || prompt == "" {
			continue
		}
		draft := PostDraft{Caption: caption, ImagePrompt: prompt}
		if el.Flashcard != nil {
			q := strings.TrimSpace(el.Flashcard.Question)
			a := strings.TrimSpace(el.Flashcard.Answer)
			if q != "" && a != "" {
				draft.Flashcard = &FlashcardDraft{Question: q, Answer: a}
			}
		}
		drafts = append(drafts, draft)
	}

	if len(drafts) == 0 {
		return []PostDraft{fallbackPostDraft(cleaned, topic)}
	}
	return drafts
}

func fallbackPostDraft(cleaned, topic string) PostDraft {
	caption := snippet(cleaned, 280)
	if caption == "" {
		caption = fmt.Sprintf("A quick look at %s.", topic)
	}
	return PostDraft{
		Caption:     caption,
		ImagePrompt: fmt.Sprintf("simple educational illustration about %s", topic),
	}
}

// MarshalFlashcard renders a draft flashcard as JSON for persistence.
func MarshalFlashcard(f *FlashcardDraft) []byte {
	if f == nil {
		return nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return b
}
