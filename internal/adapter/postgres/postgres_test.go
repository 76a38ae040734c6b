package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestExtractSSLMode(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@host/db?sslmode=require", "require"},
		{"postgres://u:p@host/db?sslmode=DISABLE", "disable"},
		{"postgres://u:p@host/db", "prefer (default)"},
		{"://bad", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractSSLMode(tt.url), tt.url)
	}
}

func TestQueryVerb(t *testing.T) {
	assert.Equal(t, "select", queryVerb("\n  SELECT s.id FROM sessions"))
	assert.Equal(t, "insert", queryVerb("INSERT INTO votes"))
	assert.Equal(t, "other", queryVerb("TRUNCATE votes"))
	assert.Equal(t, "unknown", queryVerb("   "))
}

func TestIsPgError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})

	assert.True(t, isPgError(err, pgUniqueViolation))
	assert.False(t, isPgError(err, pgForeignKeyViolation))
	assert.False(t, isPgError(nil, pgUniqueViolation))
}
