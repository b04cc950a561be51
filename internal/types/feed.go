package types

import "time"

// Flashcard is the question/answer pair attached to a feed post.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FeedPost is the API shape of a single resolved post. Position values are
// dense (0..k-1): posts dropped during asset resolution are renumbered.
type FeedPost struct {
	Position    int        `json:"position"`
	Caption     string     `json:"caption"`
	ImagePrompt string     `json:"image_prompt"`
	Flashcard   *Flashcard `json:"flashcard,omitempty"`
	ImageURL    string     `json:"image_url"`
	AudioURL    *string    `json:"audio_url,omitempty"`
	HasAudio    bool       `json:"has_audio"`
}

// Feed is the assembled, cacheable result of one topic build.
type Feed struct {
	Fingerprint string     `json:"fingerprint"`
	Posts       []FeedPost `json:"posts"`
	CreatedAt   time.Time  `json:"created_at"`
	TTLSeconds  int        `json:"ttl_seconds"`
}

// Page is one slice of the public listing.
type Page struct {
	Posts   []FeedPost `json:"posts"`
	Total   int        `json:"total"`
	HasMore bool       `json:"has_more"`
}
