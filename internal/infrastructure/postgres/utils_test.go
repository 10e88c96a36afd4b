package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "invitations_token_key"}

	assert.True(t, isUniqueViolation(pgErr))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.Equal(t, "invitations_token_key", violatedConstraint(fmt.Errorf("insert: %w", pgErr)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
	assert.Empty(t, violatedConstraint(errors.New("timeout")))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("otro")))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	v := nullable("x")
	if assert.NotNil(t, v) {
		assert.Equal(t, "x", deref(v))
	}
	assert.Empty(t, deref(nil))
}

func TestMigrationsEmbebidas(t *testing.T) {
	script, err := migrations.ReadFile("migrations/001_init.sql")
	assert.NoError(t, err)
	for _, table := range []string{"tenants", "memberships", "workers", "invitations", "checkouts",
		"webhook_events", "audit_logs", "profiles", "tenant_modules", "auth_users"} {
		assert.Contains(t, string(script), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, string(script), "WHERE accepted_at IS NULL AND revoked_at IS NULL")
}
