package notifications

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/migrate"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("RENTLOOP_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("RENTLOOP_TEST_DB_DSN not set; skipping database integration test")
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, migrate.Run(context.Background(), sqlDB, "../../pkg/migrate/migrations", "up"))
	require.NoError(t, gdb.Exec("TRUNCATE notifications").Error)
	return gdb
}

func TestCreateIdempotentReturnsExistingRow(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	recipient := uuid.New()
	first := &models.Notification{
		RecipientID: recipient,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "New booking request",
		Message:     "Booking b1 was requested.",
		ReferenceID: "booking_created_e1",
	}
	created, err := repo.CreateIdempotent(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, created)

	// A second write with the same tuple returns the first row untouched.
	duplicate := &models.Notification{
		RecipientID: recipient,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "a different title",
		Message:     "a different message",
		ReferenceID: "booking_created_e1",
	}
	existing, err := repo.CreateIdempotent(ctx, duplicate)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, created.ID, existing.ID)
	assert.Equal(t, "New booking request", existing.Title)

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateIdempotentAllowsFanOutAcrossRecipients(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	reference := "booking_status_changed_e2"
	for _, recipient := range []uuid.UUID{uuid.New(), uuid.New()} {
		row, err := repo.CreateIdempotent(ctx, &models.Notification{
			RecipientID: recipient,
			Kind:        enums.NotificationKindBookingAlert,
			Title:       "Booking status updated",
			Message:     "Booking b2 moved from pending to confirmed.",
			ReferenceID: reference,
		})
		require.NoError(t, err)
		require.NotNil(t, row)
	}

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).
		Where("reference_id = ?", reference).
		Count(&count).Error)
	assert.Equal(t, int64(2), count, "same reference may reach distinct recipients")
}

func TestListPaginatesWithCursor(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	recipient := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		row := &models.Notification{
			RecipientID: recipient,
			Kind:        enums.NotificationKindSystemAnnouncement,
			Title:       "Announcement",
			Message:     "Scheduled maintenance.",
			ReferenceID: uuid.NewString(),
		}
		require.NoError(t, gdb.Create(row).Error)
		require.NoError(t, gdb.Model(&models.Notification{}).
			Where("id = ?", row.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page, next, err := repo.List(ctx, listNotificationsParams{RecipientID: recipient, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "newest first")

	rest, final, err := repo.List(ctx, listNotificationsParams{RecipientID: recipient, Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Nil(t, final)
}

func TestMarkReadScopesToRecipient(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := uuid.New()
	row := &models.Notification{
		RecipientID: owner,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "New booking request",
		Message:     "Booking b3 was requested.",
		ReferenceID: uuid.NewString(),
	}
	require.NoError(t, gdb.Create(row).Error)

	// A stranger cannot acknowledge someone else's notification.
	result, err := repo.MarkRead(ctx, uuid.New(), row.ID, now)
	require.NoError(t, err)
	assert.False(t, result.Found)

	result, err = repo.MarkRead(ctx, owner, row.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Updated)

	// Re-acknowledging is found but not updated.
	result, err = repo.MarkRead(ctx, owner, row.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.False(t, result.Updated)
}

func TestDeleteOlderThanKeepsUnread(t *testing.T) {
	gdb := openTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	recipient := uuid.New()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	readAt := old.Add(time.Hour)

	oldRead := &models.Notification{
		RecipientID: recipient,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "t",
		Message:     "m",
		ReferenceID: uuid.NewString(),
	}
	oldUnread := &models.Notification{
		RecipientID: recipient,
		Kind:        enums.NotificationKindBookingAlert,
		Title:       "t",
		Message:     "m",
		ReferenceID: uuid.NewString(),
	}
	require.NoError(t, gdb.Create(oldRead).Error)
	require.NoError(t, gdb.Create(oldUnread).Error)
	require.NoError(t, gdb.Model(&models.Notification{}).
		Where("id IN ?", []uuid.UUID{oldRead.ID, oldUnread.ID}).
		UpdateColumn("created_at", old).Error)
	require.NoError(t, gdb.Model(&models.Notification{}).
		Where("id = ?", oldRead.ID).
		UpdateColumn("read_at", readAt).Error)

	deleted, err := repo.DeleteOlderThan(ctx, nil, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).
		Where("id = ?", oldUnread.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "unread notifications are never purged")
}
