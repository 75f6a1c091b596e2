package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// passthroughTx satisfies txRunner without a database; deletes happen
// against the fake repos directly.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	p.calls++
	return fn(nil)
}

type fakeOutboxRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeOutboxRetentionRepo) DeleteDeliveredBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type fakeNotificationCleanupRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeNotificationCleanupRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobUsesConfiguredWindow(t *testing.T) {
	tx := &passthroughTx{}
	repo := &fakeOutboxRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         tx,
		Repository: repo,
		Retention:  3,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	job.(*outboxRetentionJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, now.Add(-3*24*time.Hour), repo.cutoff)
}

func TestOutboxRetentionJobDefaultsWindow(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         &passthroughTx{},
		Repository: &fakeOutboxRetentionRepo{},
		Retention:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, outboxRetentionDays, job.(*outboxRetentionJob).retention)
}

func TestOutboxRetentionJobWrapsStoreErrors(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("deadlock detected")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         &passthroughTx{},
		Repository: repo,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox retention")
}

func TestNotificationCleanupJobUsesConfiguredWindow(t *testing.T) {
	tx := &passthroughTx{}
	repo := &fakeNotificationCleanupRepo{deleted: 4}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		DB:         tx,
		Repository: repo,
		Retention:  14,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	job.(*notificationCleanupJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, now.Add(-14*24*time.Hour), repo.cutoff)
}

func TestNotificationCleanupJobDefaultsWindow(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testLogger(),
		DB:         &passthroughTx{},
		Repository: &fakeNotificationCleanupRepo{},
	})
	require.NoError(t, err)
	assert.Equal(t, notificationRetentionDays, job.(*notificationCleanupJob).retention)
}
