package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	quizOptionCount  = 4
	quizMinQuestions = 4
)

// QuizDraft is one validated multiple-choice question. Options always has
// exactly four entries and CorrectAnswer indexes into it.
type QuizDraft struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// QuizQuestions recovers multiple-choice questions from raw model text.
// Elements missing a question, without exactly four options, or with an
// out-of-range answer index are dropped. Fewer than four survivors counts as
// a failed recovery and a minimal synthesized quiz over the source material
// is returned instead.
func QuizQuestions(raw, source string) []QuizDraft {
	cleaned := StripReasoning(raw)

	elements := decodeElements(cleaned, "questions")

	questions := make([]QuizDraft, 0, len(elements))
	for _, raw := range elements {
		var el QuizDraft
		if json.Unmarshal(raw, &el) != nil {
			continue
		}
		q := strings.TrimSpace(el.Question)
		if q == "" || len(el.Options) != quizOptionCount {
			continue
		}
		if el.CorrectAnswer < 0 || el.CorrectAnswer >= quizOptionCount {
			continue
		}
		opts := make([]string, quizOptionCount)
		valid := true
		for i, o := range el.Options {
			opts[i] = strings.TrimSpace(o)
			if opts[i] == "" {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		questions = append(questions, QuizDraft{Question: q, Options: opts, CorrectAnswer: el.CorrectAnswer})
	}

	if len(questions) < quizMinQuestions {
		return fallbackQuiz(source)
	}
	return questions
}

// fallbackQuiz synthesizes a minimal comprehension quiz so callers always get
// a usable structure even when the model output was unusable.
func fallbackQuiz(source string) []QuizDraft {
	topic := DeriveTopic(source)
	return []QuizDraft{
		{
			Question: fmt.Sprintf("What is the main subject of the material on %q?", topic),
			Options: []string{
				topic,
				"An unrelated topic",
				"The history of computing",
				"None of the above",
			},
			CorrectAnswer: 0,
		},
		{
			Question: "What is the best way to check your understanding of this material?",
			Options: []string{
				"Skip the review entirely",
				"Re-read the key concepts and test yourself",
				"Memorize unrelated facts",
				"Only read the title",
			},
			CorrectAnswer: 1,
		},
		{
			Question: fmt.Sprintf("Which study aid summarizes %q best?", topic),
			Options: []string{
				"A random image",
				"An unrelated article",
				"The notes this quiz was generated from",
				"A blank page",
			},
			CorrectAnswer: 2,
		},
		{
			Question: "After reviewing, what should you do with concepts you missed?",
			Options: []string{
				"Ignore them",
				"Remove them from your notes",
				"Assume you know them",
				"Revisit them until they stick",
			},
			CorrectAnswer: 3,
		},
	}
}
