// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"os"
	"time"
)

// FileSystem abstracts the filesystem operations a backup run performs.
// Production code uses the osfs adapter; tests wrap it with mocks.FaultFS.
type FileSystem interface {
	// Stat returns file info for the named file, following symlinks.
	Stat(name string) (os.FileInfo, error)

	// Lstat returns file info for the named file without following symlinks.
	Lstat(name string) (os.FileInfo, error)

	// ReadDir reads the named directory and returns directory entries.
	ReadDir(name string) ([]os.DirEntry, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// CreateExclusive writes data to a new file. It fails with an error
	// matching fs.ErrExist if name already exists.
	CreateExclusive(name string, data []byte, perm os.FileMode) error

	// Chtimes changes the access and modification times of the named file.
	Chtimes(name string, atime, mtime time.Time) error

	// Link creates newname as a hard link to oldname.
	Link(oldname, newname string) error

	// Symlink creates newname as a symbolic link to oldname.
	Symlink(oldname, newname string) error

	// EvalSymlinks returns the path name after evaluating any symbolic links.
	EvalSymlinks(path string) (string, error)

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// RemoveAll removes path and any children it contains.
	RemoveAll(path string) error

	// Rename renames (moves) oldpath to newpath.
	Rename(oldpath, newpath string) error
}
