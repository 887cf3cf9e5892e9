package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/s3fs/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5708, cfg.Server.Port)
	assert.Equal(t, int64(0), cfg.Server.MaxUploadSize)
	assert.Equal(t, ".s3fs", cfg.Storage.RootDir)
	assert.Equal(t, "default", cfg.Storage.Bucket)
	assert.Equal(t, 30, cfg.Storage.CleanupTimeout)
	assert.False(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"ETag"}, cfg.CORS.ExposedHeaders)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	configPath := writeConfig(t, "s3fs.yaml", `
server:
  port: 8080
  max_upload_size: 1048576
storage:
  root_dir: /tmp/objects
  bucket: photos
  cleanup_timeout: 5
log:
  level: debug
  format: json
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1048576), cfg.Server.MaxUploadSize)
	assert.Equal(t, "/tmp/objects", cfg.Storage.RootDir)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.Equal(t, 5, cfg.Storage.CleanupTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	basePath := writeConfig(t, "base.yaml", `
server:
  port: 5708
storage:
  root_dir: ./data
  bucket: base
log:
  level: info
`)
	overridePath := writeConfig(t, "override.yaml", `
server:
  port: 9000
storage:
  bucket: override
`)

	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "override", cfg.Storage.Bucket)
	assert.Equal(t, "./data", cfg.Storage.RootDir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load([]string{filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5708, cfg.Server.Port)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "port out of range",
			content: "server:\n  port: 99999\n",
		},
		{
			name:    "negative upload size",
			content: "server:\n  max_upload_size: -1\n",
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: verbose\n",
		},
		{
			name:    "unknown log format",
			content: "log:\n  format: xml\n",
		},
		{
			name:    "empty root dir",
			content: "storage:\n  root_dir: \"\"\n",
		},
		{
			name:    "zero cleanup timeout",
			content: "storage:\n  cleanup_timeout: 0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, "s3fs.yaml", tt.content)

			_, err := config.Load([]string{configPath}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_WithCORS(t *testing.T) {
	configPath := writeConfig(t, "s3fs.yaml", `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - PUT
  allowed_headers:
    - Content-Type
  max_age: 600
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Type"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("S3FS_SERVER_PORT", "9090")
	t.Setenv("S3FS_STORAGE_ROOT_DIR", "/srv/s3fs")
	t.Setenv("S3FS_LOG_FORMAT", "json")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/s3fs", cfg.Storage.RootDir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Flags(t *testing.T) {
	t.Setenv("S3FS_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("root", "", "")
	flags.String("bucket", "", "")
	flags.Bool("log-json", false, "")
	require.NoError(t, flags.Parse([]string{"--port", "7000", "--bucket", "photos", "--log-json"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
	assert.Equal(t, ".s3fs", cfg.Storage.RootDir, "unset flags do not override defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromContext_Missing(t *testing.T) {
	_, err := config.FromContext(context.Background())
	require.Error(t, err)
}

func TestDefaults(t *testing.T) {
	d := config.Defaults()
	assert.Equal(t, 5708, d.Server.Port)
	assert.Equal(t, "text", d.Log.Format)
}
