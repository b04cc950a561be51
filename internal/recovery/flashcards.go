package recovery

import (
	"encoding/json"
	"strings"
	"unicode"
)

// CardDraft is one concept card recovered from model output.
type CardDraft struct {
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
}

// Flashcards recovers concept cards from raw model text. At least one valid
// card is required; otherwise a single card is synthesized from the source
// material so the caller never receives an empty set.
func Flashcards(raw, source string) []CardDraft {
	cleaned := StripReasoning(raw)

	elements := decodeElements(cleaned, "flashcards")

	cards := make([]CardDraft, 0, len(elements))
	for _, raw := range elements {
		var el CardDraft
		if json.Unmarshal(raw, &el) != nil {
			continue
		}
		topic := strings.TrimSpace(el.Topic)
		explanation := strings.TrimSpace(el.Explanation)
		if topic == "" || explanation == "" {
			continue
		}
		cards = append(cards, CardDraft{Topic: topic, Explanation: explanation})
	}
	if len(cards) > 0 {
		return cards
	}
	return []CardDraft{fallbackCard(cleaned, source)}
}

func fallbackCard(cleaned, source string) CardDraft {
	explanation := snippet(cleaned, 500)
	if explanation == "" {
		explanation = snippet(source, 500)
	}
	return CardDraft{
		Topic:       DeriveTopic(source),
		Explanation: explanation,
	}
}

// DeriveTopic builds a short title from the leading words of the source text.
func DeriveTopic(source string) string {
	words := strings.Fields(source)
	if len(words) < 2 {
		return "Study Notes"
	}
	n := 3
	if len(words) < n {
		n = len(words)
	}
	titled := make([]string, 0, n)
	for _, w := range words[:n] {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		titled = append(titled, string(r))
	}
	return strings.Join(titled, " ")
}
