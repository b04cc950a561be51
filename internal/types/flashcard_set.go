package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FlashcardSet stores a generated set of study cards for source material.
type FlashcardSet struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Cards      datatypes.JSON `gorm:"column:cards;type:jsonb;not null" json:"cards"`
	SourceText string         `gorm:"column:source_text" json:"source_text,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FlashcardSet) TableName() string { return "flashcard_set" }
