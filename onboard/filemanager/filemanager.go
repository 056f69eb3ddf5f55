package filemanager

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// DirOperations represents operations that can be performed on directories.
type DirOperations interface {
	// EnsureDirectory creates path and any missing parents. An existing
	// directory is not an error.
	EnsureDirectory(path string, perm os.FileMode) error
}

// FileOperations represents operations that can be performed on files.
type FileOperations interface {
	// WriteFile replaces the contents of path with data.
	WriteFile(path string, data []byte, perm os.FileMode) error
	Chown(path string, uid, gid int) error
}

// HomeFileWriter is what key installation needs from the filesystem.
type HomeFileWriter interface {
	DirOperations
	FileOperations
}

type AferoFileManager struct {
	Fs afero.Fs
}

// NewFileManager returns a manager over fs, or over the OS filesystem when
// fs is nil.
func NewFileManager(fs afero.Fs) *AferoFileManager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &AferoFileManager{Fs: fs}
}

func (f *AferoFileManager) EnsureDirectory(path string, perm os.FileMode) error {
	if err := f.Fs.MkdirAll(path, perm); err != nil {
		return err
	}
	info, err := f.Fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	return f.Fs.Chmod(path, perm)
}

func (f *AferoFileManager) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := afero.WriteFile(f.Fs, path, data, perm); err != nil {
		return err
	}
	// Mode passed to WriteFile only applies on creation.
	return f.Fs.Chmod(path, perm)
}

func (f *AferoFileManager) Chown(path string, uid, gid int) error {
	return f.Fs.Chown(path, uid, gid)
}
