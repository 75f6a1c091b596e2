package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

// DomainEvent is the producer-facing description of an outbox row.
type DomainEvent struct {
	Kind        enums.OutboxEventKind
	AggregateID string
	Data        interface{}
	Version     int
	MaxRetries  int
	OccurredAt  time.Time
}

// Service queues domain events inside the producer's own transaction.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit inserts a pending OutboxItem as part of tx. The row becomes
// visible to the dispatcher only when the caller's transaction commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.Kind.IsValid() {
		return errors.New("invalid event kind")
	}
	if event.AggregateID == "" {
		return errors.New("aggregate id required")
	}

	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Version <= 0 {
		event.Version = 1
	}
	envelopeJSON, err := json.Marshal(PayloadEnvelope{
		Version:    event.Version,
		OccurredAt: event.OccurredAt,
		Data:       payload,
	})
	if err != nil {
		return err
	}

	row := models.OutboxItem{
		AggregateID: event.AggregateID,
		EventKind:   event.Kind,
		Payload:     json.RawMessage(envelopeJSON),
		Status:      enums.OutboxStatusPending,
		MaxRetries:  event.MaxRetries,
	}
	if err := s.repo.Insert(tx, &row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithItem(ctx, row.ID.String())
		logCtx = s.logg.WithAggregate(logCtx, event.AggregateID)
		logCtx = s.logg.WithField(logCtx, "event_kind", event.Kind)
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}
