package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

func TestEmitRejectsMissingTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{
		Kind:        enums.EventBookingCreated,
		AggregateID: "b1",
	})
	assert.EqualError(t, err, "transaction required")
}

func TestEmitValidatesEvent(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	tx := &gorm.DB{}

	err := svc.Emit(context.Background(), tx, DomainEvent{
		Kind:        enums.OutboxEventKind("listing_viewed"),
		AggregateID: "b1",
	})
	assert.EqualError(t, err, "invalid event kind")

	err = svc.Emit(context.Background(), tx, DomainEvent{
		Kind: enums.EventBookingCreated,
	})
	assert.EqualError(t, err, "aggregate id required")
}
