package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Booking is the aggregate whose state changes produce outbox events.
type Booking struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID   uuid.UUID           `gorm:"column:listing_id;type:uuid;not null"`
	OwnerID     uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	RenterID    uuid.UUID           `gorm:"column:renter_id;type:uuid;not null"`
	Status      enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:pending"`
	TotalAmount decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	StartDate   time.Time           `gorm:"column:start_date;type:date;not null"`
	EndDate     time.Time           `gorm:"column:end_date;type:date;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Booking) TableName() string { return "bookings" }
