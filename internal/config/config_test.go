package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, "Projects", c.Root)
	assert.Equal(t, "public", c.PublicDir)
	assert.Equal(t, "projects", c.LiveName)
	assert.Equal(t, "projects_build.lock", c.LockName)
	assert.Equal(t, "projects.json", c.ManifestName)
	assert.Equal(t, "image-hostnames.json", c.HostnamesFile)
	assert.Equal(t, 2*time.Second, c.SettleDelay)
	assert.Equal(t, 1, c.CopyWorkers)
	assert.Equal(t, "Unknown Domain", c.DefaultDomain)
	assert.Equal(t, "/projects", c.URLPrefix)
	assert.Equal(t, filepath.Join("public", "projects"), c.LivePath())
	require.NoError(t, c.Validate())
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Projects", c.Root)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "custom.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FOLIO_PUBLIC", "site")
	require.NoError(t, os.WriteFile(".env", []byte("FOLIO_WORKERS=4\nFOLIO_PUBLIC=ignored\n"), 0o600))
	yml := `
root: Work
public_dir: ${FOLIO_PUBLIC}
live_name: folio
copy_workers: ${FOLIO_WORKERS}
settle_delay: 250ms
ignore_dirs: [Archive]
watch:
  interval: 10m
notify:
  nats_url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(DefaultFile, []byte(yml), 0o600))

	c, err := Load(DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, "Work", c.Root)
	assert.Equal(t, "site", c.PublicDir, "existing environment wins over .env")
	assert.Equal(t, 4, c.CopyWorkers)
	assert.Equal(t, 250*time.Millisecond, c.SettleDelay)
	assert.Equal(t, "folio_build.lock", c.LockName)
	assert.Equal(t, "/folio", c.URLPrefix)
	assert.Equal(t, []string{"Archive"}, c.IgnoreDirs)
	assert.Equal(t, 10*time.Minute, c.Watch.Interval)
	assert.Equal(t, "foliobuilder.published", c.Notify.Subject)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nested live name", func(c *Config) { c.LiveName = "a/b" }},
		{"dot manifest", func(c *Config) { c.ManifestName = ".." }},
		{"negative workers", func(c *Config) { c.CopyWorkers = -2 }},
		{"negative settle", func(c *Config) { c.SettleDelay = -time.Second }},
		{"relative prefix", func(c *Config) { c.URLPrefix = "projects" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}
