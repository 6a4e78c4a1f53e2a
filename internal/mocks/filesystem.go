// Package mocks provides mock implementations for testing.
package mocks

import (
	"os"
	"time"

	"github.com/mcdonaldj/rmbak/internal/ports"
)

// FaultFS wraps a real ports.FileSystem and fails selected operations.
// Backup runs depend on hardlinks and inodes, so tests run against a real
// temp directory and only inject the failures they need.
type FaultFS struct {
	ports.FileSystem

	// Errors maps "op path" (e.g. "Rename /tmp/x") to the error to return
	Errors map[string]error
	// Calls records every operation in order as "op path"
	Calls []string
}

// NewFaultFS wraps inner.
func NewFaultFS(inner ports.FileSystem) *FaultFS {
	return &FaultFS{
		FileSystem: inner,
		Errors:     make(map[string]error),
	}
}

// Fail makes op on path return err.
func (f *FaultFS) Fail(op, path string, err error) {
	f.Errors[op+" "+path] = err
}

func (f *FaultFS) check(op, path string) error {
	key := op + " " + path
	f.Calls = append(f.Calls, key)
	return f.Errors[key]
}

func (f *FaultFS) Stat(name string) (os.FileInfo, error) {
	if err := f.check("Stat", name); err != nil {
		return nil, err
	}
	return f.FileSystem.Stat(name)
}

func (f *FaultFS) Lstat(name string) (os.FileInfo, error) {
	if err := f.check("Lstat", name); err != nil {
		return nil, err
	}
	return f.FileSystem.Lstat(name)
}

func (f *FaultFS) ReadDir(name string) ([]os.DirEntry, error) {
	if err := f.check("ReadDir", name); err != nil {
		return nil, err
	}
	return f.FileSystem.ReadDir(name)
}

func (f *FaultFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check("MkdirAll", path); err != nil {
		return err
	}
	return f.FileSystem.MkdirAll(path, perm)
}

func (f *FaultFS) ReadFile(name string) ([]byte, error) {
	if err := f.check("ReadFile", name); err != nil {
		return nil, err
	}
	return f.FileSystem.ReadFile(name)
}

func (f *FaultFS) CreateExclusive(name string, data []byte, perm os.FileMode) error {
	if err := f.check("CreateExclusive", name); err != nil {
		return err
	}
	return f.FileSystem.CreateExclusive(name, data, perm)
}

func (f *FaultFS) Chtimes(name string, atime, mtime time.Time) error {
	if err := f.check("Chtimes", name); err != nil {
		return err
	}
	return f.FileSystem.Chtimes(name, atime, mtime)
}

func (f *FaultFS) Link(oldname, newname string) error {
	if err := f.check("Link", newname); err != nil {
		return err
	}
	return f.FileSystem.Link(oldname, newname)
}

func (f *FaultFS) Symlink(oldname, newname string) error {
	if err := f.check("Symlink", newname); err != nil {
		return err
	}
	return f.FileSystem.Symlink(oldname, newname)
}

func (f *FaultFS) EvalSymlinks(path string) (string, error) {
	if err := f.check("EvalSymlinks", path); err != nil {
		return "", err
	}
	return f.FileSystem.EvalSymlinks(path)
}

func (f *FaultFS) Remove(name string) error {
	if err := f.check("Remove", name); err != nil {
		return err
	}
	return f.FileSystem.Remove(name)
}

func (f *FaultFS) RemoveAll(path string) error {
	if err := f.check("RemoveAll", path); err != nil {
		return err
	}
	return f.FileSystem.RemoveAll(path)
}

func (f *FaultFS) Rename(oldpath, newpath string) error {
	if err := f.check("Rename", oldpath); err != nil {
		return err
	}
	return f.FileSystem.Rename(oldpath, newpath)
}

// Compile-time check that FaultFS implements ports.FileSystem.
var _ ports.FileSystem = (*FaultFS)(nil)
