package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/internal/notifications"
	"github.com/rentloop/rentloop-backend/internal/outbox"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

// Handlers turn routed outbox items into notification writes. Idempotency
// comes from the reference id derived from the outbox item id together
// with the notification store's uniqueness tuple; re-running a handler
// for the same item is a no-op at the store level.
type Handlers struct {
	notifier notifications.Service
	logg     *logger.Logger
}

func NewHandlers(notifier notifications.Service, logg *logger.Logger) (*Handlers, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handlers{notifier: notifier, logg: logg}, nil
}

// RegisterAll binds every known event kind on the router.
func (h *Handlers) RegisterAll(router *Router) {
	router.Register(enums.EventBookingCreated, h.BookingCreated)
	router.Register(enums.EventBookingStatusChanged, h.BookingStatusChanged)
	router.Register(enums.EventPaymentReceived, h.PaymentReceived)
	router.Register(enums.EventPaymentFailed, h.PaymentFailed)
}

// referenceID derives the idempotency discriminator for an item. The
// notification uniqueness tuple also includes the recipient, so the same
// reference can fan out to several recipients safely.
func referenceID(kind enums.OutboxEventKind, itemID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", kind, itemID)
}

type bookingCreatedPayload struct {
	BookingID   uuid.UUID       `json:"bookingId"`
	ListingID   uuid.UUID       `json:"listingId"`
	OwnerID     uuid.UUID       `json:"ownerId"`
	RenterID    uuid.UUID       `json:"renterId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type bookingStatusChangedPayload struct {
	BookingID uuid.UUID           `json:"bookingId"`
	OwnerID   uuid.UUID           `json:"ownerId"`
	RenterID  uuid.UUID           `json:"renterId"`
	OldStatus enums.BookingStatus `json:"oldStatus"`
	NewStatus enums.BookingStatus `json:"newStatus"`
}

type paymentReceivedPayload struct {
	BookingID uuid.UUID       `json:"bookingId"`
	OwnerID   uuid.UUID       `json:"ownerId"`
	RenterID  uuid.UUID       `json:"renterId"`
	Amount    decimal.Decimal `json:"amount"`
}

type paymentFailedPayload struct {
	BookingID uuid.UUID       `json:"bookingId"`
	RenterID  uuid.UUID       `json:"renterId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
}

// BookingCreated notifies the listing owner about a new booking request.
func (h *Handlers) BookingCreated(ctx context.Context, item models.OutboxItem) error {
	var payload bookingCreatedPayload
	if err := decodePayload(item.Payload, &payload); err != nil {
		return err
	}
	if payload.OwnerID == uuid.Nil {
		return fmt.Errorf("owner id missing")
	}

	// The emit outcome is deliberately discarded: a failed notification
	// write still counts as a handled item and the OutboxItem is marked
	// delivered.
	result := h.notifier.Emit(ctx, notifications.EmitParams{
		RecipientID: payload.OwnerID,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "New booking request",
		Message:     fmt.Sprintf("Booking %s was requested for your listing (total %s).", payload.BookingID, payload.TotalAmount.StringFixed(2)),
		Payload:     payload,
		ReferenceID: referenceID(item.EventKind, item.ID),
	})
	if result == nil {
		h.logg.Warn(h.logg.WithItem(ctx, item.ID.String()), "booking created notification was dropped")
	}
	return nil
}

// BookingStatusChanged notifies both parties about a status transition.
func (h *Handlers) BookingStatusChanged(ctx context.Context, item models.OutboxItem) error {
	var payload bookingStatusChangedPayload
	if err := decodePayload(item.Payload, &payload); err != nil {
		return err
	}
	if payload.OwnerID == uuid.Nil || payload.RenterID == uuid.Nil {
		return fmt.Errorf("owner and renter ids required")
	}

	message := fmt.Sprintf("Booking %s moved from %s to %s.", payload.BookingID, payload.OldStatus, payload.NewStatus)
	reference := referenceID(item.EventKind, item.ID)
	results := h.notifier.EmitBatch(ctx, []notifications.EmitParams{
		{
			RecipientID: payload.OwnerID,
			Kind:        enums.NotificationKindBookingAlert,
			Title:       "Booking status updated",
			Message:     message,
			Payload:     payload,
			ReferenceID: reference,
		},
		{
			RecipientID: payload.RenterID,
			Kind:        enums.NotificationKindBookingAlert,
			Title:       "Booking status updated",
			Message:     message,
			Payload:     payload,
			ReferenceID: reference,
		},
	})
	for _, result := range results {
		if result == nil {
			h.logg.Warn(h.logg.WithItem(ctx, item.ID.String()), "booking status notification was dropped")
		}
	}
	return nil
}

// PaymentReceived notifies the owner that a payout is on the way.
func (h *Handlers) PaymentReceived(ctx context.Context, item models.OutboxItem) error {
	var payload paymentReceivedPayload
	if err := decodePayload(item.Payload, &payload); err != nil {
		return err
	}
	if payload.OwnerID == uuid.Nil {
		return fmt.Errorf("owner id missing")
	}

	result := h.notifier.Emit(ctx, notifications.EmitParams{
		RecipientID: payload.OwnerID,
		Kind:        enums.NotificationKindPaymentAlert,
		Title:       "Payment received",
		Message:     fmt.Sprintf("Payment of %s was received for booking %s.", payload.Amount.StringFixed(2), payload.BookingID),
		Payload:     payload,
		ReferenceID: referenceID(item.EventKind, item.ID),
	})
	if result == nil {
		h.logg.Warn(h.logg.WithItem(ctx, item.ID.String()), "payment received notification was dropped")
	}
	return nil
}

// PaymentFailed notifies the renter their payment did not go through.
func (h *Handlers) PaymentFailed(ctx context.Context, item models.OutboxItem) error {
	var payload paymentFailedPayload
	if err := decodePayload(item.Payload, &payload); err != nil {
		return err
	}
	if payload.RenterID == uuid.Nil {
		return fmt.Errorf("renter id missing")
	}

	message := fmt.Sprintf("Payment of %s for booking %s failed.", payload.Amount.StringFixed(2), payload.BookingID)
	if payload.Reason != "" {
		message = fmt.Sprintf("%s Reason: %s", message, payload.Reason)
	}
	result := h.notifier.Emit(ctx, notifications.EmitParams{
		RecipientID: payload.RenterID,
		Kind:        enums.NotificationKindPaymentAlert,
		Title:       "Payment failed",
		Message:     message,
		Payload:     payload,
		ReferenceID: referenceID(item.EventKind, item.ID),
	})
	if result == nil {
		h.logg.Warn(h.logg.WithItem(ctx, item.ID.String()), "payment failed notification was dropped")
	}
	return nil
}

// decodePayload unwraps the stored envelope and decodes its data field.
func decodePayload(raw json.RawMessage, target any) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
