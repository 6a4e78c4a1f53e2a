package backup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mcdonaldj/rmbak/internal/ports"
)

// Walker enumerates the device tree depth-first, pre-order, and hands every
// document to the engine.
type Walker struct {
	device  ports.Device
	engine  *Engine
	exclude []string
	log     *slog.Logger

	excluded int
}

// NewWalker creates a walker. exclude holds doublestar patterns matched
// against slash-separated paths relative to the device root, e.g.
// "Trash/**" or "**/*.epub".
func NewWalker(device ports.Device, engine *Engine, exclude []string, logger *slog.Logger) (*Walker, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{device: device, engine: engine, exclude: exclude, log: logger}, nil
}

// walkItem is one pending node: a collection to list or a document to sync.
type walkItem struct {
	node    ports.Node
	root    bool
	newPath string
	prev    string // "" when there is no previous run
	rel     string
}

// Walk mirrors the collection rootID into newDir. prevDir is the previous
// run's directory or "". Sibling order follows the device listing.
func (w *Walker) Walk(ctx context.Context, rootID, newDir, prevDir string) error {
	stack := []walkItem{{node: ports.Node{ID: rootID}, root: true, newPath: newDir, prev: prevDir}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !item.root && !item.node.IsCollection() {
			if err := w.engine.SyncOne(ctx, item.node, item.newPath, item.prev); err != nil {
				return err
			}
			continue
		}

		if !item.root {
			w.log.Debug("collection", "path", item.rel)
		}
		children, err := w.device.ListChildren(ctx, item.node.ID)
		if err != nil {
			return err
		}

		// push in reverse so the first child is processed first
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			name := child.VisibleName

			rel := path.Join(item.rel, name)
			if w.excludes(rel) {
				w.log.Debug("excluded", "path", rel)
				w.excluded++
				continue
			}

			if !safeName(name) {
				return fmt.Errorf("%w: %q (id %s)", ErrUnsafeName, name, child.ID)
			}

			next := walkItem{
				node:    child,
				newPath: filepath.Join(item.newPath, name),
				rel:     rel,
			}
			if item.prev != "" {
				next.prev = filepath.Join(item.prev, name)
			}
			stack = append(stack, next)
		}
	}
	return nil
}

// Excluded returns the number of nodes skipped by exclude patterns.
func (w *Walker) Excluded() int {
	return w.excluded
}

// safeName reports whether name is a single local path element.
func safeName(name string) bool {
	if name == "." || strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return false
	}
	return filepath.IsLocal(name)
}

func (w *Walker) excludes(rel string) bool {
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
