package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxStatusIsValid(t *testing.T) {
	for _, status := range validOutboxStatuses {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, OutboxStatus("archived").IsValid())
	assert.False(t, OutboxStatus("").IsValid())
}

func TestParseOutboxEventKind(t *testing.T) {
	kind, err := ParseOutboxEventKind("booking_created")
	require.NoError(t, err)
	assert.Equal(t, EventBookingCreated, kind)

	_, err = ParseOutboxEventKind("BOOKING_CREATED")
	require.Error(t, err, "kinds are case sensitive")

	_, err = ParseOutboxEventKind("listing_viewed")
	require.Error(t, err)
}

func TestNotificationKindIsValid(t *testing.T) {
	for _, kind := range validNotificationKinds {
		assert.True(t, kind.IsValid(), string(kind))
	}
	assert.False(t, NotificationKind("carrier_pigeon").IsValid())
}

func TestBookingStatusIsValid(t *testing.T) {
	for _, status := range validBookingStatuses {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, BookingStatus("teleported").IsValid())
}
