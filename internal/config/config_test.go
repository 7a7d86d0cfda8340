package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/digest-core/internal/core/domain"
)

// clearEnv blanks every key FromEnv reads so host settings cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ORIGINS", "API_JWT_SECRET", "PDF_INSPECT", "DATABASE_URL", "REDIS_URL",
		"DOCUMENT_STORE", "QUEUE_BACKEND", "BLOB_STORE", "S3_BUCKET", "AWS_REGION",
		"GCS_BUCKET", "GCP_PROJECT", "GCP_REGION", "AI_PROVIDER", "GEMINI_API_KEY",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "MARKDOWN_PROVIDER",
		"MAX_UPLOAD_BYTES", "MAX_ATTEMPTS", "VISIBILITY_TIMEOUT", "CALL_TIMEOUT",
		"WORKER_CONCURRENCY", "WORKER_DEQUEUE_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://frontend:3000"}, cfg.CORSOrigins)
	assert.Equal(t, BackendPostgres, cfg.DocumentStore)
	assert.Equal(t, BackendRedis, cfg.QueueBackend)
	assert.Equal(t, BackendRedis, cfg.BlobStore)
	assert.True(t, cfg.InspectPDFs)
	assert.Equal(t, int64(5*1024*1024), cfg.Pipeline.MaxUploadBytes)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 5*time.Minute, cfg.VisibilityTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, domain.AIProviderGemini, cfg.AI.Provider)
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesRedis())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("DOCUMENT_STORE", "redis")
	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("CALL_TIMEOUT", "45")
	t.Setenv("VISIBILITY_TIMEOUT", "90s")
	t.Setenv("PDF_INSPECT", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 90*time.Second, cfg.VisibilityTTL)
	assert.False(t, cfg.InspectPDFs)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.UsesPostgres())
}

func TestFromEnv_OpenAIWithGeminiMarkdown(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("MARKDOWN_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, "g-test", cfg.AI.MarkdownAPIKey)
	assert.Equal(t, domain.AIProviderGemini, cfg.AI.MarkdownSettings().Provider)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"DOCUMENT_STORE": "mongo"}},
		{"unknown queue", map[string]string{"QUEUE_BACKEND": "kafka"}},
		{"unknown blob store", map[string]string{"BLOB_STORE": "ftp"}},
		{"s3 without bucket", map[string]string{"BLOB_STORE": "s3", "AWS_REGION": "eu-west-1"}},
		{"gcs without bucket", map[string]string{"BLOB_STORE": "gcs"}},
		{"firestore without project", map[string]string{"DOCUMENT_STORE": "firestore"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"call timeout equals visibility", map[string]string{"CALL_TIMEOUT": "5m", "VISIBILITY_TIMEOUT": "5m"}},
		{"call timeout beyond visibility", map[string]string{"CALL_TIMEOUT": "10m", "VISIBILITY_TIMEOUT": "5m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\n"), 0o600))

	t.Chdir(dir)
	// godotenv never overrides a set variable, and t.Setenv set PORT to ""
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "not-a-duration")
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("TEST_DURATION", time.Second))
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}
