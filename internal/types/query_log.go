package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QueryLog is an admin/debug trail of generation requests and what was
// returned for them. Written best-effort; never blocks a request.
type QueryLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Query     string         `gorm:"column:query;not null" json:"query"`
	Response  datatypes.JSON `gorm:"column:response;type:jsonb" json:"response,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (QueryLog) TableName() string { return "query_log" }
