package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		t.Run(e.Name(), func(t *testing.T) {
			data, err := fs.ReadFile(migrations, "migrations/"+e.Name())
			require.NoError(t, err)
			body := string(data)
			assert.Contains(t, body, "-- +goose Up")
			assert.Contains(t, body, "-- +goose Down")
		})
	}
}

func TestMigrations_LineSchema(t *testing.T) {
	data, err := fs.ReadFile(migrations, "migrations/00001_clients.sql")
	require.NoError(t, err)
	schema := string(data)

	for _, column := range []string{"regulation", "position", "debit", "credit", "balance", "section", "category", "is_group", "manual_override"} {
		assert.True(t, strings.Contains(schema, column), "missing column %s", column)
	}
	assert.Contains(t, schema, "ON DELETE CASCADE")
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(Config{DSN: "postgres://%zz"}, nil)
	assert.Error(t, err)
}
