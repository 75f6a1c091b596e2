package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/internal/outbox"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// eventEmitter queues an outbox row inside the caller's transaction.
type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service demonstrates the producer contract: every booking state change
// writes its outbox event in the same transaction as the change itself,
// so the event exists iff the change committed.
type Service struct {
	tx     txRunner
	outbox eventEmitter
}

func NewService(tx txRunner, emitter eventEmitter) (*Service, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Service{tx: tx, outbox: emitter}, nil
}

// CreateParams carries the booking request fields.
type CreateParams struct {
	ListingID   uuid.UUID
	OwnerID     uuid.UUID
	RenterID    uuid.UUID
	TotalAmount decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
}

type bookingCreatedEvent struct {
	BookingID   uuid.UUID       `json:"bookingId"`
	ListingID   uuid.UUID       `json:"listingId"`
	OwnerID     uuid.UUID       `json:"ownerId"`
	RenterID    uuid.UUID       `json:"renterId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type bookingStatusChangedEvent struct {
	BookingID uuid.UUID           `json:"bookingId"`
	OwnerID   uuid.UUID           `json:"ownerId"`
	RenterID  uuid.UUID           `json:"renterId"`
	OldStatus enums.BookingStatus `json:"oldStatus"`
	NewStatus enums.BookingStatus `json:"newStatus"`
}

// Create persists the booking and its booking_created event atomically.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Booking, error) {
	if params.ListingID == uuid.Nil || params.OwnerID == uuid.Nil || params.RenterID == uuid.Nil {
		return nil, errors.New("listing, owner and renter ids are required")
	}
	if !params.EndDate.After(params.StartDate) {
		return nil, errors.New("end date must be after start date")
	}
	if params.TotalAmount.IsNegative() {
		return nil, errors.New("total amount must not be negative")
	}

	booking := &models.Booking{
		ListingID:   params.ListingID,
		OwnerID:     params.OwnerID,
		RenterID:    params.RenterID,
		Status:      enums.BookingStatusPending,
		TotalAmount: params.TotalAmount,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			Kind:        enums.EventBookingCreated,
			AggregateID: booking.ID.String(),
			Data: bookingCreatedEvent{
				BookingID:   booking.ID,
				ListingID:   booking.ListingID,
				OwnerID:     booking.OwnerID,
				RenterID:    booking.RenterID,
				TotalAmount: booking.TotalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// UpdateStatus transitions the booking and records the change event in
// the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, bookingID uuid.UUID, newStatus enums.BookingStatus) error {
	if bookingID == uuid.Nil {
		return errors.New("booking id required")
	}
	if !newStatus.IsValid() {
		return errors.New("invalid booking status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where("id = ?", bookingID).First(&booking).Error; err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if booking.Status == newStatus {
			return nil
		}
		oldStatus := booking.Status
		if err := tx.Model(&booking).Update("status", newStatus).Error; err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			Kind:        enums.EventBookingStatusChanged,
			AggregateID: booking.ID.String(),
			Data: bookingStatusChangedEvent{
				BookingID: booking.ID,
				OwnerID:   booking.OwnerID,
				RenterID:  booking.RenterID,
				OldStatus: oldStatus,
				NewStatus: newStatus,
			},
		})
	})
}
