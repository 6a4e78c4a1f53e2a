package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mcdonaldj/rmbak/internal/adapters/osfs"
	"github.com/mcdonaldj/rmbak/internal/ports"
)

// Options configures a Runner.
type Options struct {
	Exclude  []string // doublestar patterns, see NewWalker
	KeepLast int      // completed runs to keep after a run, 0 keeps all
	Logger   *slog.Logger
	Now      func() time.Time
}

// Runner performs backup runs with injected dependencies.
type Runner struct {
	fs     ports.FileSystem
	device ports.Device
	opts   Options
}

// NewRunner creates a runner with the given dependencies.
func NewRunner(fsys ports.FileSystem, device ports.Device, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{fs: fsys, device: device, opts: opts}
}

// NewDefaultRunner creates a runner on the real filesystem.
func NewDefaultRunner(device ports.Device, opts Options) *Runner {
	return NewRunner(osfs.New(), device, opts)
}

// Run backs up the whole device tree into root.
//
// The tree is written to <root>/<id>_incomplete. Only once the walk succeeds
// is the directory renamed to <root>/<id>, and only after that rename is
// latest repointed. A failed run leaves the incomplete directory behind and
// latest untouched.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving backup root: %w", err)
	}

	info, err := r.fs.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("checking backup root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	lock := newRootLock(root)
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.opts.Logger.Warn("unlock failed", "error", err)
		}
	}()

	previous, err := r.previousRun(root)
	if err != nil {
		return nil, err
	}

	id := r.opts.Now().Format(IDLayout)
	workDir := filepath.Join(root, id+IncompleteSuffix)
	finalDir := filepath.Join(root, id)
	for _, dir := range []string{workDir, finalDir} {
		if _, err := r.fs.Lstat(dir); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, dir)
		}
	}

	log := r.opts.Logger.With("run", id)
	if previous == "" {
		log.Info("starting full backup", "dir", workDir)
	} else {
		log.Info("starting incremental backup", "dir", workDir, "previous", previous)
	}

	engine := NewEngine(r.fs, r.device, log)
	engine.now = r.opts.Now
	walker, err := NewWalker(r.device, engine, r.opts.Exclude, log)
	if err != nil {
		return nil, err
	}

	if err := walker.Walk(ctx, "", workDir, previous); err != nil {
		return nil, fmt.Errorf("backup %s incomplete: %w", id, err)
	}

	result := &Result{ID: id, Stats: engine.Stats()}
	result.Excluded = walker.Excluded()

	if err := r.fs.Rename(workDir, finalDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("nothing to sync")
			result.NothingSynced = true
			return result, nil
		}
		return nil, fmt.Errorf("completing backup %s: %w", id, err)
	}
	result.Dir = finalDir

	if err := r.swapLatest(root, id); err != nil {
		return nil, err
	}
	log.Info("backup complete", "dir", finalDir,
		"downloaded", result.Downloaded, "linked", result.Linked)

	if r.opts.KeepLast > 0 {
		pruned, err := Prune(r.fs, root, r.opts.KeepLast)
		result.Pruned = pruned
		if err != nil {
			return result, fmt.Errorf("pruning old runs: %w", err)
		}
	}

	return result, nil
}

// previousRun resolves latest to an absolute directory, or "" when there is
// no usable previous run.
func (r *Runner) previousRun(root string) (string, error) {
	latest := filepath.Join(root, LatestName)
	if _, err := r.fs.Lstat(latest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("checking %s: %w", latest, err)
	}

	dir, err := r.fs.EvalSymlinks(latest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.opts.Logger.Warn("latest points at a missing run, starting a full backup", "latest", latest)
			return "", nil
		}
		return "", fmt.Errorf("resolving %s: %w", latest, err)
	}
	return filepath.Abs(dir)
}

// swapLatest atomically points latest at the run id. The new symlink is
// created under a temporary name and renamed over the old one, so latest
// always resolves to a completed run.
func (r *Runner) swapLatest(root, id string) error {
	latest := filepath.Join(root, LatestName)
	tmp := latest + ".tmp"

	if err := r.fs.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale %s: %w", tmp, err)
	}
	if err := r.fs.Symlink(id, tmp); err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if err := r.fs.Rename(tmp, latest); err != nil {
		return fmt.Errorf("updating %s: %w", latest, err)
	}
	return nil
}
