package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// OutboxItem is one domain event awaiting dispatch. Rows are written by
// producers inside their own transaction and mutated only by the
// dispatcher afterward.
type OutboxItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AggregateID string                `gorm:"column:aggregate_id;type:text;not null"`
	EventKind   enums.OutboxEventKind `gorm:"column:event_kind;type:outbox_event_kind;not null"`
	Payload     json.RawMessage       `gorm:"column:payload;type:jsonb;not null"`
	Status      enums.OutboxStatus    `gorm:"column:status;type:outbox_status;not null;default:pending"`
	RetryCount  int                   `gorm:"column:retry_count;not null;default:0"`
	MaxRetries  int                   `gorm:"column:max_retries;not null;default:0"`
	NextRetryAt *time.Time            `gorm:"column:next_retry_at"`
	LastError   *string               `gorm:"column:last_error"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
	ProcessedAt *time.Time            `gorm:"column:processed_at"`
}

func (OutboxItem) TableName() string { return "outbox_items" }

// EffectiveMaxRetries resolves the per-item override against the global
// default. A stored value of zero means "no override".
func (i OutboxItem) EffectiveMaxRetries(globalDefault int) int {
	if i.MaxRetries > 0 {
		return i.MaxRetries
	}
	return globalDefault
}
