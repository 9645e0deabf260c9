// Package fsys provides the filesystem abstraction used by the scanner,
// the report writer and the upload pipeline. Production code runs on the
// OS filesystem; tests run on an in-memory one.
package fsys

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Filesystem is the set of filesystem operations the tool relies on.
// Implementations must surface per-entry errors from Walk through the
// walk function rather than aborting the traversal.
type Filesystem interface {
	// Create creates or truncates the named file and opens it for writing.
	Create(name string) (File, error)

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// ReadDir reads the named directory and returns its entries.
	ReadDir(dirname string) ([]os.FileInfo, error)

	// MkdirAll creates the named directory along with any missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Rename renames (moves) a file or directory.
	Rename(oldpath, newpath string) error

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// Walk walks the tree rooted at root, calling walkFn for each entry.
	Walk(root string, walkFn filepath.WalkFunc) error

	// ReadFile reads the named file and returns its contents.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(filename string, data []byte, perm os.FileMode) error

	// Exists reports whether the named file or directory exists.
	Exists(path string) (bool, error)
}

// FS implements Filesystem using go-billy.
type FS struct {
	fs billy.Filesystem
}

// NewFS creates a new FS using the given go-billy filesystem.
func NewFS(fsys billy.Filesystem) *FS {
	return &FS{
		fs: fsys,
	}
}

// NewInMemoryFS creates a new in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{
		fs: memfs.New(),
	}
}

// NewOSFS creates a new OS filesystem rooted at the given path.
func NewOSFS(path string) *FS {
	return &FS{
		fs: osfs.New(path),
	}
}

// Create implements Filesystem.Create.
func (b *FS) Create(name string) (File, error) {
	f, err := b.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: create %q: %w", name, err)
	}
	return &file{
		file: f,
		fs:   b,
	}, nil
}

// Open implements Filesystem.Open.
func (b *FS) Open(name string) (File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: open %q: %w", name, err)
	}
	return &file{
		file: f,
		fs:   b,
	}, nil
}

// Stat implements Filesystem.Stat.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("fsys: stat %q: %w", name, err)
	}
	return info, nil
}

// ReadDir implements Filesystem.ReadDir.
func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("fsys: readdir %q: %w", dirname, err)
	}
	return list, nil
}

// MkdirAll implements Filesystem.MkdirAll.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("fsys: mkdirall %q: %w", path, err)
	}
	return nil
}

// Rename implements Filesystem.Rename.
func (b *FS) Rename(oldpath, newpath string) error {
	if err := b.fs.Rename(oldpath, newpath); err != nil {
		return fmt.Errorf("fsys: rename %q to %q: %w", oldpath, newpath, err)
	}
	return nil
}

// Remove implements Filesystem.Remove.
func (b *FS) Remove(name string) error {
	if err := b.fs.Remove(name); err != nil {
		return fmt.Errorf("fsys: remove %q: %w", name, err)
	}
	return nil
}

// Walk implements Filesystem.Walk. Per-entry errors are delivered to
// walkFn, which may ignore them to keep the traversal going.
func (b *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	return util.Walk(b.fs, root, walkFn)
}

// ReadFile implements Filesystem.ReadFile.
func (b *FS) ReadFile(path string) ([]byte, error) {
	bts, err := util.ReadFile(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("fsys: readfile %q: %w", path, err)
	}
	return bts, nil
}

// WriteFile implements Filesystem.WriteFile.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.fs, filename, data, perm); err != nil {
		return fmt.Errorf("fsys: writefile %q: %w", filename, err)
	}
	return nil
}

// Exists implements Filesystem.Exists.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("fsys: stat %q: %w", path, err)
	}
}

// Raw returns the underlying go-billy filesystem.
func (b *FS) Raw() billy.Filesystem {
	return b.fs
}
