package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to recipients.
// The (recipient_id, kind, reference_id) tuple is unique; a repeated emit
// for the same tuple is a no-op at the store level.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null"`
	Title       string                 `gorm:"column:title;type:text;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	Payload     json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReferenceID string                 `gorm:"column:reference_id;type:text;not null"`
	ReadAt      *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt   time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}

func (Notification) TableName() string { return "notifications" }

// IsRead reports whether the notification has been acknowledged.
func (n Notification) IsRead() bool { return n.ReadAt != nil }
