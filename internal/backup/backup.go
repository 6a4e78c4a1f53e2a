// Package backup mirrors the tablet's document tree into timestamped run
// directories, hardlinking documents that did not change since the previous
// completed run.
package backup

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	// IncompleteSuffix marks a run directory that is still being written or
	// whose run failed.
	IncompleteSuffix = "_incomplete"
	// LatestName is the symlink pointing at the last completed run.
	LatestName = "latest"
	// IDLayout formats run IDs. IDs sort in creation order.
	IDLayout = "2006-01-02T150405"

	lockName = ".rmbak.lock"
	dirPerm  = 0755
	filePerm = 0644
)

var (
	// ErrRootNotFound is returned when the backup root is missing or not a directory.
	ErrRootNotFound = errors.New("backup root does not exist")
	// ErrRootLocked is returned when another run holds the root's lock.
	ErrRootLocked = errors.New("backup root locked by another run")
	// ErrRunExists is returned when the directory for a new run ID is taken.
	ErrRunExists = errors.New("run directory already exists")
	// ErrDuplicateTarget is returned when a document's file already exists in
	// the run, usually two siblings with the same visible name.
	ErrDuplicateTarget = errors.New("target file already exists")
	// ErrUnsafeName is returned for a visible name that is not a single local
	// path element.
	ErrUnsafeName = errors.New("unsafe document name")
)

// Stats counts what a run did with each document.
type Stats struct {
	Downloaded int   // documents written from fresh bytes
	Linked     int   // documents hardlinked to the previous run
	Excluded   int   // nodes skipped by exclude patterns
	Bytes      int64 // bytes written for downloaded documents
}

// Result describes a finished run.
type Result struct {
	ID  string
	Dir string // final directory, empty when nothing was synced
	Stats
	// NothingSynced is set when the device tree produced no files, in which
	// case no directory was created and latest was left alone.
	NothingSynced bool
	Pruned        []string
}

// documentPath returns the on-disk file name for a document. Documents without
// an extension are PDF exports.
func documentPath(p string) string {
	if hasSuffix(p) {
		return p
	}
	return p + ".pdf"
}

// hasSuffix reports whether the final path element has an extension. A
// leading dot (".notes") or a trailing dot ("Notes.") does not count.
func hasSuffix(p string) bool {
	name := filepath.Base(p)
	i := strings.LastIndex(name, ".")
	return i > 0 && i < len(name)-1
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
