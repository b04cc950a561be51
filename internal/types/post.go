package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post is a persisted feed post. A row is only ever written with a resolved
// image URL; HasAudio mirrors AudioURL being set.
type Post struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FeedFingerprint string         `gorm:"column:feed_fingerprint;not null;index" json:"feed_fingerprint"`
	Position        int            `gorm:"column:position;not null" json:"position"`
	Caption         string         `gorm:"column:caption;not null" json:"caption"`
	ImagePrompt     string         `gorm:"column:image_prompt;not null" json:"image_prompt"`
	Flashcard       datatypes.JSON `gorm:"column:flashcard;type:jsonb" json:"flashcard,omitempty"`
	ImageURL        string         `gorm:"column:image_url;not null" json:"image_url"`
	AudioURL        *string        `gorm:"column:audio_url" json:"audio_url,omitempty"`
	HasAudio        bool           `gorm:"column:has_audio;not null;default:false" json:"has_audio"`
	Public          bool           `gorm:"column:public;not null;default:true;index" json:"public"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Post) TableName() string { return "post" }
