package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/atff/wire"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Links.Enabled)
	assert.Equal(t, wire.CompressionNone, cfg.Compression())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  json: true
links:
  enabled: true
  allowed_hosts: ["*.example.com"]
  timeout: 30s
  command: [python3, "-"]
output:
  compression: zstd
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.Links.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Links.Timeout)
	assert.Equal(t, []string{"python3", "-"}, cfg.Links.Command)
	assert.Equal(t, wire.CompressionZstd, cfg.Compression())
	// untouched fields keep their defaults
	assert.Equal(t, ".atff", cfg.Output.Extension)

	p := cfg.Policy()
	assert.Equal(t, []string{"https"}, p.AllowedSchemes)
	assert.Equal(t, []string{"*.example.com"}, p.AllowedHosts)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":        "colour: blue\n",
		"bad level":          "log:\n  level: loud\n",
		"bad compression":    "output:\n  compression: gzip\n",
		"bad extension":      "output:\n  extension: bin\n",
		"enabled no command": "links:\n  enabled: true\n",
		"negative timeout":   "links:\n  timeout: -1s\n",
		"negative retries":   "links:\n  retries: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvVar, "/etc/atff.yaml")
	assert.Equal(t, "/tmp/x.yaml", Path("/tmp/x.yaml"))
	assert.Equal(t, "/etc/atff.yaml", Path(""))

	t.Setenv(EnvVar, "")
	assert.Equal(t, "", Path(""))
}

func TestLoad_JSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atff.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // comments are allowed
  "links": {
    "allowed_schemes": ["https", "http"], /* both */
    "retries": 2,
  },
  "output": {"compression": "lz4"}
}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https", "http"}, cfg.Links.AllowedSchemes)
	assert.Equal(t, 2, cfg.Policy().Retries)
	assert.Equal(t, wire.CompressionLZ4, cfg.Compression())
}

func TestLoad_EnvFile(t *testing.T) {
	path := writeConfig(t, `
links:
  env: [PATH=/usr/bin]
  env_file: link.env
`)
	envFile := filepath.Join(filepath.Dir(path), "link.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# child env\nTOKEN=abc\nLANG=C\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PATH=/usr/bin", "LANG=C", "TOKEN=abc"}, cfg.Links.Env)

	require.NoError(t, os.Remove(envFile))
	_, err = Load(path)
	assert.ErrorContains(t, err, "links.env_file")
}
