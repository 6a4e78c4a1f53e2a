package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mcdonaldj/rmbak/internal/compare"
	"github.com/mcdonaldj/rmbak/internal/ports"
)

// Engine syncs single documents into the new run directory.
type Engine struct {
	fs     ports.FileSystem
	device ports.Device
	log    *slog.Logger
	now    func() time.Time

	stats Stats
}

// NewEngine creates an engine. A nil logger uses slog.Default.
func NewEngine(fsys ports.FileSystem, device ports.Device, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fs:     fsys,
		device: device,
		log:    logger,
		now:    time.Now,
	}
}

// Stats returns the counters accumulated so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// SyncOne materializes node at newChild. prevChild is the same relative path
// in the previous run, or "" when there is no previous run. Unchanged
// documents become hardlinks to the previous file; everything else is
// downloaded and written with the document's modification time. The
// timestamp is only parsed when a file is written.
func (e *Engine) SyncOne(ctx context.Context, node ports.Node, newChild, prevChild string) error {
	target := documentPath(newChild)
	if err := e.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}

	var (
		doc     ports.Document
		fetched bool
	)

	if prevChild != "" {
		previous := documentPath(prevChild)
		exists, err := e.exists(previous)
		if err != nil {
			return err
		}

		if exists {
			doc, err = e.device.FetchDocument(ctx, node)
			if err != nil {
				return err
			}
			fetched = true

			old, err := e.fs.ReadFile(previous)
			if err != nil {
				return fmt.Errorf("reading previous %s: %w", previous, err)
			}

			if compare.Unchanged(doc.Content, old) {
				if err := e.fs.Link(previous, target); err != nil {
					return e.targetError("linking", target, err)
				}
				e.log.Info("unchanged, linked", "path", target)
				e.stats.Linked++
				return nil
			}
		}
	}

	if !fetched {
		var err error
		if doc, err = e.device.FetchDocument(ctx, node); err != nil {
			return err
		}
	}

	modified, err := node.Modified()
	if err != nil {
		return fmt.Errorf("document %s (%s): %w", node.VisibleName, node.ID, err)
	}

	if err := e.fs.CreateExclusive(target, doc.Content, filePerm); err != nil {
		return e.targetError("writing", target, err)
	}

	if err := e.fs.Chtimes(target, e.now(), modified); err != nil {
		return fmt.Errorf("setting mtime of %s: %w", target, err)
	}

	e.log.Info("downloaded", "path", target, "size", len(doc.Content))
	e.stats.Downloaded++
	e.stats.Bytes += int64(len(doc.Content))
	return nil
}

// exists reports whether path is a regular file in the previous run. A path
// that runs through a file or a symlink loop has no correspondent.
func (e *Engine) exists(path string) (bool, error) {
	info, err := e.fs.Stat(path)
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.ELOOP):
		return false, nil
	default:
		return false, fmt.Errorf("checking previous %s: %w", path, err)
	}
}

// targetError reports an existing target as ErrDuplicateTarget: two documents
// in one collection share a visible name.
func (e *Engine) targetError(op, target string, err error) error {
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s %s: %w (duplicate document name?)", op, target, ErrDuplicateTarget)
	}
	return fmt.Errorf("%s %s: %w", op, target, err)
}
