package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/internal/outbox"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// guardTx fails the test if a transaction is opened; validation has to
// reject bad input before any database work starts.
type guardTx struct {
	t *testing.T
}

func (g *guardTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	g.t.Fatal("transaction opened for invalid input")
	return nil
}

type guardEmitter struct{}

func (guardEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return nil
}

func validCreateParams() CreateParams {
	start := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	return CreateParams{
		ListingID:   uuid.New(),
		OwnerID:     uuid.New(),
		RenterID:    uuid.New(),
		TotalAmount: decimal.NewFromFloat(120.50),
		StartDate:   start,
		EndDate:     start.Add(48 * time.Hour),
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, guardEmitter{})
	require.Error(t, err)

	_, err = NewService(&guardTx{t: t}, nil)
	require.Error(t, err)
}

func TestCreateRejectsInvalidParams(t *testing.T) {
	svc, err := NewService(&guardTx{t: t}, guardEmitter{})
	require.NoError(t, err)
	ctx := context.Background()

	params := validCreateParams()
	params.OwnerID = uuid.Nil
	_, err = svc.Create(ctx, params)
	assert.EqualError(t, err, "listing, owner and renter ids are required")

	params = validCreateParams()
	params.EndDate = params.StartDate
	_, err = svc.Create(ctx, params)
	assert.EqualError(t, err, "end date must be after start date")

	params = validCreateParams()
	params.TotalAmount = decimal.NewFromInt(-5)
	_, err = svc.Create(ctx, params)
	assert.EqualError(t, err, "total amount must not be negative")
}

func TestUpdateStatusRejectsInvalidParams(t *testing.T) {
	svc, err := NewService(&guardTx{t: t}, guardEmitter{})
	require.NoError(t, err)
	ctx := context.Background()

	err = svc.UpdateStatus(ctx, uuid.Nil, enums.BookingStatusConfirmed)
	assert.EqualError(t, err, "booking id required")

	err = svc.UpdateStatus(ctx, uuid.New(), enums.BookingStatus("teleported"))
	assert.EqualError(t, err, "invalid booking status")
}
