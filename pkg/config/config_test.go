package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "CLIENT_STORE", "IMPORT_SAMPLE_ROWS", "IMPORT_TEXT_CAP", "SERVER_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Gemini.Enabled(), "the rule oracle is used without a key")
	assert.Equal(t, StoreTypePostgres, cfg.Database.Store)
	assert.Equal(t, 25, cfg.Import.SampleRows)
	assert.Equal(t, 300_000, cfg.Import.TextCap)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CLIENT_STORE", "Memory")
	t.Setenv("IMPORT_SAMPLE_ROWS", "10")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("STORAGE_RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Gemini.Enabled())
	assert.Equal(t, StoreTypeMemory, cfg.Database.Store)
	assert.Equal(t, 10, cfg.Import.SampleRows)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.Retention())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown store", "CLIENT_STORE", "sqlite"},
		{"zero sample rows", "IMPORT_SAMPLE_ROWS", "0"},
		{"negative text cap", "IMPORT_TEXT_CAP", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestStorageConfig_Retention(t *testing.T) {
	assert.Zero(t, StorageConfig{RetentionDays: 0}.Retention())
	assert.Zero(t, StorageConfig{RetentionDays: -3}.Retention())
	assert.Equal(t, 48*time.Hour, StorageConfig{RetentionDays: 2}.Retention())
}
