package filemanager

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectoryIsIdempotent(t *testing.T) {
	manager := NewFileManager(afero.NewMemMapFs())

	require.NoError(t, manager.EnsureDirectory("/home/george/.ssh", 0o700))
	require.NoError(t, manager.EnsureDirectory("/home/george/.ssh", 0o700))

	info, err := manager.Fs.Stat("/home/george/.ssh")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestEnsureDirectoryOverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/george/.ssh", []byte("oops"), 0o644))
	manager := NewFileManager(fs)

	assert.Error(t, manager.EnsureDirectory("/home/george/.ssh", 0o700))
}

func TestWriteFileOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager := NewFileManager(fs)
	path := "/home/george/.ssh/authorized_keys"
	require.NoError(t, afero.WriteFile(fs, path, []byte("old key that is much longer than the new one\n"), 0o644))

	require.NoError(t, manager.WriteFile(path, []byte("ssh-rsa key that is public"), 0o600))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa key that is public", string(data))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFileReadOnlyFs(t *testing.T) {
	manager := NewFileManager(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	assert.Error(t, manager.WriteFile("/home/george/.ssh/authorized_keys", []byte("key"), 0o600))
}

func TestChown(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager := NewFileManager(fs)
	require.NoError(t, manager.EnsureDirectory("/home/george/.ssh", 0o700))

	assert.NoError(t, manager.Chown("/home/george/.ssh", 3021, 3000))
	assert.Error(t, manager.Chown("/home/kramer/.ssh", 3022, 3000))
}

func TestNewFileManagerDefaultsToOsFs(t *testing.T) {
	manager := NewFileManager(nil)

	_, ok := manager.Fs.(*afero.OsFs)
	assert.True(t, ok)
}
