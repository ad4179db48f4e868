package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNormalizeFillsPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locale: fr-CA
week_start: Tuesday
lms:
  base_url: https://lms.example.com
feeds:
  - name: team
    url: https://cal.example.com/team.ics
basic_auth:
  username: ""
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr-CA", cfg.Locale)
	assert.Equal(t, "", cfg.WeekStart)
	assert.Nil(t, cfg.WeekStartDay())
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, 15*time.Second, cfg.LMS.Timeout())
	assert.Equal(t, "team", cfg.Feeds[0].ID)
	assert.Nil(t, cfg.BasicAuth)
	assert.NotEmpty(t, cfg.Palette)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.WeekStart = "sunday"
	cfg.Timezone = "Europe/Paris"
	cfg.Feeds = []FeedConfig{{ID: "t", URL: "https://x/t.ics", Name: "T", Enrolled: true}}
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	require.NotNil(t, got.WeekStartDay())
	assert.Equal(t, time.Sunday, *got.WeekStartDay())
	assert.Equal(t, "Europe/Paris", got.Location().String())

	feeds := got.ICSFeeds()
	require.Len(t, feeds, 1)
	assert.True(t, feeds[0].Enrolled)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadRejectsEmptyPathAndBadYAML(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [oops"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
