package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgdb "github.com/rentloop/rentloop-backend/pkg/db"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

// referenceConstraint backs the (recipient_id, kind, reference_id)
// uniqueness tuple in the notifications table.
const referenceConstraint = "ux_notifications_recipient_kind_reference"

// isReferenceConflict reports whether the error is the uniqueness tuple
// firing on insert.
func isReferenceConflict(err error) bool {
	return pkgdb.IsUniqueViolation(err, referenceConstraint)
}

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIdempotent(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	FindByReference(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, referenceID string) (*models.Notification, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
	UnreadOnly  bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// CreateIdempotent inserts the notification unless a row with the same
// (recipient_id, kind, reference_id) tuple already exists, in which case
// the pre-existing row is returned unchanged.
func (r *repositoryImpl) CreateIdempotent(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "recipient_id"},
				{Name: "kind"},
				{Name: "reference_id"},
			},
			DoNothing: true,
		}).
		Create(notification)
	if result.Error != nil {
		// The conflict clause normally swallows duplicates, but the
		// constraint can still fire through paths the clause does not
		// cover (older servers, raced partial indexes). Treat that the
		// same as a zero-row insert.
		if isReferenceConflict(result.Error) {
			return r.FindByReference(ctx, notification.RecipientID, notification.Kind, notification.ReferenceID)
		}
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return notification, nil
	}
	return r.FindByReference(ctx, notification.RecipientID, notification.Kind, notification.ReferenceID)
}

func (r *repositoryImpl) FindByReference(ctx context.Context, recipientID uuid.UUID, kind enums.NotificationKind, referenceID string) (*models.Notification, error) {
	var existing models.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND kind = ? AND reference_id = ?", recipientID, kind, referenceID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", params.RecipientID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		next := notifications[normalized]
		notifications = notifications[:normalized]
		return notifications, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return notifications, nil, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", notificationID, recipientID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteOlderThan removes read notifications created before the cutoff.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("created_at < ? AND read_at IS NOT NULL", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
