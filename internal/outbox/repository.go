package outbox

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// maxLastErrorLen bounds the stored failure message.
const maxLastErrorLen = 500

// claimQuery locks a batch of claimable rows, skipping rows another
// worker already holds, and flips them to processing in the same
// statement. This is the only cross-instance coordination point.
const claimQuery = `
WITH claimable AS (
    SELECT id
    FROM outbox_items
    WHERE status = 'pending'
      AND (next_retry_at IS NULL OR next_retry_at <= NOW())
    ORDER BY created_at, id
    LIMIT ?
    FOR UPDATE SKIP LOCKED
)
UPDATE outbox_items
SET status = 'processing', updated_at = NOW()
WHERE id IN (SELECT id FROM claimable)
RETURNING id, aggregate_id, event_kind, payload, status, retry_count, max_retries,
          next_retry_at, last_error, created_at, updated_at, processed_at;
`

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a pending item inside the producer's transaction.
func (r *Repository) Insert(tx *gorm.DB, item *models.OutboxItem) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(item).Error
}

// ClaimBatch atomically transitions up to limit claimable items from
// pending to processing and returns them in created_at order.
func (r *Repository) ClaimBatch(ctx context.Context, limit int) ([]models.OutboxItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []models.OutboxItem
	if err := r.db.WithContext(ctx).Raw(claimQuery, limit).Scan(&items).Error; err != nil {
		return nil, err
	}
	// RETURNING does not preserve the CTE ordering.
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// RecoverStuck resets processing items whose updated_at is older than the
// timeout back to pending, returning the number of rows reset.
func (r *Repository) RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Where("status = ? AND updated_at < ?", enums.OutboxStatusProcessing, cutoff).
		Updates(map[string]any{
			"status":     enums.OutboxStatusPending,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// MarkDelivered finalizes a successfully handled item.
func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OutboxStatusDelivered,
			"processed_at": now,
			"updated_at":   now,
		}).Error
}

// MarkFailed reschedules a failed item: back to pending with the bumped
// retry count, the computed next attempt time, and the truncated error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, failure error, retryCount int, nextRetryAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OutboxStatusPending,
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
			"last_error":    truncateError(failure),
			"updated_at":    time.Now().UTC(),
		}).Error
}

// MarkDeadLetter parks an item permanently after its retry budget is spent.
func (r *Repository) MarkDeadLetter(ctx context.Context, id uuid.UUID, failure error, retryCount int) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.OutboxStatusDeadLetter,
			"retry_count": retryCount,
			"last_error":  truncateError(failure),
			"updated_at":  time.Now().UTC(),
		}).Error
}

// CountByStatus returns live row counts per status for health reporting.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.OutboxStatus]int64, error) {
	var rows []struct {
		Status enums.OutboxStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CountDeliveredSince counts items delivered at or after the given time.
func (r *Repository) CountDeliveredSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OutboxItem{}).
		Where("status = ? AND processed_at >= ?", enums.OutboxStatusDelivered, since).
		Count(&count).Error
	return count, err
}

// DeleteDeliveredBefore removes delivered rows whose processed_at is older
// than the cutoff. Pending, processing and dead-letter rows are never touched.
func (r *Repository) DeleteDeliveredBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("status = ? AND processed_at < ?", enums.OutboxStatusDelivered, cutoff).
		Delete(&models.OutboxItem{})
	return result.RowsAffected, result.Error
}

// FindByID loads one item, mainly for tests and manual inspection.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OutboxItem, error) {
	var item models.OutboxItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func truncateError(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	return &msg
}
