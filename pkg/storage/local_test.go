package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	clientID := uuid.New()
	info, err := s.Save(ctx, clientID, "../../balance.csv", "text/csv", strings.NewReader("Cuenta;Saldo\nCaja;100\n"))
	require.NoError(t, err)

	assert.Equal(t, clientID, info.ClientID)
	assert.Equal(t, int64(22), info.Size)
	assert.Len(t, info.SHA256, 64)
	assert.NotContains(t, info.Path, "..")

	rc, got, err := s.Open(ctx, clientID, info.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "Cuenta;Saldo\nCaja;100\n", string(data))
	assert.Equal(t, info.SHA256, got.SHA256)

	_, _, err = s.Open(ctx, uuid.New(), info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound, "documents are scoped per client")

	require.NoError(t, s.Delete(ctx, clientID, info.ID))
	_, _, err = s.Open(ctx, clientID, info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	clientID := uuid.New()
	empty, err := s.List(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.csv", "b.xlsx"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := s.Save(ctx, clientID, name, "", strings.NewReader("x"))
		require.NoError(t, err)
	}

	files, err := s.List(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b.xlsx", files[0].Name, "newest first")
}

func TestLocalStorage_PruneOlderThan(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)

	s.now = func() time.Time { return old }
	stale, err := s.Save(ctx, uuid.New(), "old.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	s.now = func() time.Time { return now }
	fresh, err := s.Save(ctx, uuid.New(), "new.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("not a client"), 0o644))

	removed, err := s.PruneOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, _, err = s.Open(ctx, stale.ClientID, stale.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, _, err = s.Open(ctx, fresh.ClientID, fresh.ID)
	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"balance.csv", "balance.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\tb.xlsx`, "tb.xlsx"},
		{"what?.pdf", "what_.pdf"},
		{"", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
