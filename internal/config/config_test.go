package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	require.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	require.Equal(t, "knowledge-files", cfg.Storage.Bucket)
	require.Equal(t, 30*time.Minute, cfg.Security.JWTAccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Security.RefreshTTL)
	require.Equal(t, 10, cfg.Security.MaxSessions)
	require.Equal(t, int64(10<<20), cfg.Upload.MaxSizeBytes)
	require.Contains(t, cfg.Upload.AllowedExtensions, ".pdf")
	require.Contains(t, cfg.Upload.AllowedExtensions, ".md")
	require.Equal(t, "knowledge:maintenance", cfg.Worker.Stream)
	require.Equal(t, "maintenance-workers", cfg.Worker.Group)
	require.Equal(t, 5*time.Second, cfg.Worker.BlockTimeout)
	require.Equal(t, 30*24*time.Hour, cfg.Jobs.OrphanCutoff)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("KNOWLEDGE_ENVIRONMENT", "production")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}
