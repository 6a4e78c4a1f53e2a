package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcdonaldj/rmbak/internal/ports"
)

// RunInfo describes one run directory found under a backup root.
type RunInfo struct {
	ID       string
	Dir      string
	Time     time.Time
	Complete bool
	Latest   bool
}

// ListRuns returns the run directories under root, oldest first. Entries
// whose names are not run IDs are ignored.
func ListRuns(fsys ports.FileSystem, root string) ([]RunInfo, error) {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, err
	}

	latest := latestTarget(fsys, root)

	var runs []RunInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		id, incomplete := strings.CutSuffix(name, IncompleteSuffix)
		t, err := time.ParseInLocation(IDLayout, id, time.Local)
		if err != nil {
			continue
		}
		runs = append(runs, RunInfo{
			ID:       id,
			Dir:      filepath.Join(root, name),
			Time:     t,
			Complete: !incomplete,
			Latest:   !incomplete && name == latest,
		})
	}
	return runs, nil
}

// latestTarget returns the directory name latest points at, or "".
func latestTarget(fsys ports.FileSystem, root string) string {
	dir, err := fsys.EvalSymlinks(filepath.Join(root, LatestName))
	if err != nil {
		return ""
	}
	return filepath.Base(dir)
}

// Prune removes the oldest completed runs so that at most keepLast remain.
// Incomplete runs and the run latest points at are never removed. Files
// shared with newer runs through hardlinks stay intact.
// Returns the IDs of the removed runs.
func Prune(fsys ports.FileSystem, root string, keepLast int) ([]string, error) {
	if keepLast <= 0 {
		return nil, nil
	}

	runs, err := ListRuns(fsys, root)
	if err != nil {
		return nil, err
	}

	var complete []RunInfo
	for _, run := range runs {
		if run.Complete {
			complete = append(complete, run)
		}
	}
	if len(complete) <= keepLast {
		return nil, nil
	}

	var (
		deleted []string
		errs    []error
	)
	for _, run := range complete[:len(complete)-keepLast] {
		if run.Latest {
			continue
		}
		if err := fsys.RemoveAll(run.Dir); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", run.ID, err))
			continue
		}
		deleted = append(deleted, run.ID)
	}

	return deleted, errors.Join(errs...)
}
