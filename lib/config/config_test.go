package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxpage/lib/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := config.Default()
	assert.Equal(t, "/", c.BaseURL)
	assert.Equal(t, ":3000", c.Addr)
	assert.Equal(t, "dist", c.OutDir)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.False(t, c.S3.Enabled())
	require.NoError(t, c.Validate())
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("HXPAGE_TEST_DSN", "https://key@sentry.example.com/1")

	c, err := config.Parse([]byte(`
base_url: /docs/
production: true
sentry:
  dsn: ${HXPAGE_TEST_DSN}
s3:
  bucket: site
  access_key: a
  secret_key: b
  path_style: true
`))
	require.NoError(t, err)
	assert.Equal(t, "/docs/", c.BaseURL)
	assert.Equal(t, "https://key@sentry.example.com/1", c.Sentry.DSN)
	assert.Equal(t, "production", c.Sentry.Environment)
	assert.True(t, c.S3.Enabled())
	assert.True(t, c.S3.PathStyle)
	assert.Equal(t, "us-east-1", c.S3.Region)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "relative base url", yaml: "base_url: docs"},
		{name: "base url with query", yaml: "base_url: /docs?x=1"},
		{name: "log format", yaml: "log:\n  format: xml"},
		{name: "log level", yaml: "log:\n  level: loud"},
		{name: "half s3 credentials", yaml: "s3:\n  bucket: b\n  access_key: a"},
		{name: "metrics path", yaml: "metrics:\n  path: metrics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("base_url: [unterminated"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: :8080\nout_dir: public\n"), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "public", c.OutDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
