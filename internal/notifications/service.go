package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

// Service defines the notification emit and read-acknowledgement surface.
type Service interface {
	Emit(ctx context.Context, params EmitParams) *models.Notification
	EmitBatch(ctx context.Context, batch []EmitParams) []*models.Notification
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// EmitParams describes one notification write. ReferenceID is the
// idempotency discriminator derived from the triggering outbox item.
type EmitParams struct {
	RecipientID uuid.UUID
	Kind        enums.NotificationKind
	Title       string
	Message     string
	Payload     any
	ReferenceID string
}

// ListParams configures pagination for notifications.
type ListParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
	UnreadOnly  bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Emit persists one notification. All failures, including transient store
// outages, are logged and collapsed into a nil result: Emit never returns
// an error to its caller. On a uniqueness conflict the pre-existing row is
// returned unchanged.
func (s *service) Emit(ctx context.Context, params EmitParams) *models.Notification {
	row, err := s.emit(ctx, params)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"recipient_id": params.RecipientID.String(),
			"kind":         params.Kind,
			"reference_id": params.ReferenceID,
		})
		s.logg.Error(logCtx, "notification emit failed", err)
		return nil
	}
	return row
}

func (s *service) emit(ctx context.Context, params EmitParams) (*models.Notification, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !params.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}
	if params.ReferenceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id required")
	}

	var payload json.RawMessage
	if params.Payload != nil {
		raw, err := json.Marshal(params.Payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "marshal payload")
		}
		payload = raw
	}

	notification := &models.Notification{
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Title:       params.Title,
		Message:     params.Message,
		Payload:     payload,
		ReferenceID: params.ReferenceID,
	}
	row, err := s.repo.CreateIdempotent(ctx, notification)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return row, nil
}

// EmitBatch fans out over many recipients independently: one recipient's
// failure never blocks another's. The returned slice is positional; nil
// entries mark failed writes.
func (s *service) EmitBatch(ctx context.Context, batch []EmitParams) []*models.Notification {
	results := make([]*models.Notification, len(batch))
	var failures error
	for i, params := range batch {
		row, err := s.emit(ctx, params)
		if err != nil {
			failures = multierr.Append(failures, err)
			continue
		}
		results[i] = row
	}
	if failures != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"batch_size": len(batch),
			"failed":     len(multierr.Errors(failures)),
		})
		s.logg.Error(logCtx, "notification batch emit partially failed", failures)
	}
	return results
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	query := listNotificationsParams{
		RecipientID: params.RecipientID,
		Limit:       params.Limit,
		UnreadOnly:  params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if recipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipientID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	count, err := s.repo.MarkAllRead(ctx, recipientID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
