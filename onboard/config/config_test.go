package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onboard.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1000, cfg.Accounts.MinUID)
	assert.Equal(t, "/home", cfg.Accounts.HomeRoot)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[accounts]
home_root = /srv/home
min_uid = 3000
chown_keys = false

[commands]
useradd = /usr/sbin/useradd

[log]
level = debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/home", cfg.Accounts.HomeRoot)
	assert.Equal(t, 3000, cfg.Accounts.MinUID)
	assert.False(t, cfg.Accounts.ChownKeys)
	assert.Equal(t, "/usr/sbin/useradd", cfg.Commands.Useradd)
	assert.Equal(t, "userdel", cfg.Commands.Userdel)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())
	assert.Equal(t, "/usr/sbin/useradd", cfg.UserCommands().Useradd)
}

func TestLoadRejectsRelativeHomeRoot(t *testing.T) {
	path := writeConfig(t, "[accounts]\nhome_root = home\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "home_root must be an absolute path")
}

func TestLoadRejectsNegativeMinUID(t *testing.T) {
	path := writeConfig(t, "[accounts]\nmin_uid = -1\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "min_uid must not be negative")
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = loud\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.ErrorContains(t, err, "loading config")
}
