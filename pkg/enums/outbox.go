package enums

import "fmt"

// OutboxStatus maps to the outbox_status enum in Postgres.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusDelivered  OutboxStatus = "delivered"
	OutboxStatusDeadLetter OutboxStatus = "dead_letter"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusProcessing,
	OutboxStatusDelivered,
	OutboxStatusDeadLetter,
}

// IsValid reports whether the value matches the canonical outbox_status enum.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// OutboxEventKind maps to the outbox_event_kind enum in Postgres.
// The dispatcher only routes kinds listed here; producers shipping a new
// kind must land the handler first.
type OutboxEventKind string

const (
	EventBookingCreated       OutboxEventKind = "booking_created"
	EventBookingStatusChanged OutboxEventKind = "booking_status_changed"
	EventPaymentReceived      OutboxEventKind = "payment_received"
	EventPaymentFailed        OutboxEventKind = "payment_failed"
)

var validOutboxEventKinds = []OutboxEventKind{
	EventBookingCreated,
	EventBookingStatusChanged,
	EventPaymentReceived,
	EventPaymentFailed,
}

// IsValid reports whether the value matches the canonical event kind enum.
func (e OutboxEventKind) IsValid() bool {
	for _, candidate := range validOutboxEventKinds {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventKind converts raw input into OutboxEventKind.
func ParseOutboxEventKind(value string) (OutboxEventKind, error) {
	for _, candidate := range validOutboxEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
