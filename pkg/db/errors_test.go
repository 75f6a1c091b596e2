package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationPgError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_notifications_recipient_kind_reference",
	}

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "ux_notifications_recipient_kind_reference"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_some_other_constraint"))

	wrapped := fmt.Errorf("create notification: %w", pgErr)
	assert.True(t, IsUniqueViolation(wrapped, "ux_notifications_recipient_kind_reference"))
}

func TestIsUniqueViolationOtherPgCodes(t *testing.T) {
	notNull := &pgconn.PgError{Code: "23502"}
	assert.False(t, IsUniqueViolation(notNull, ""))
}

func TestIsUniqueViolationStringFallback(t *testing.T) {
	assert.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "ux_x"`), ""))
	assert.True(t, IsUniqueViolation(errors.New(`violates unique constraint "ux_x"`), "ux_x"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}
