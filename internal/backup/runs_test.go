package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/rmbak/internal/adapters/osfs"
)

func makeRuns(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name, "Work"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, "Work", "Notes.pdf"), []byte(name), 0644))
	}
}

func TestListRuns(t *testing.T) {
	root := t.TempDir()
	makeRuns(t, root,
		"2024-05-01T093000",
		"2024-05-02T093000",
		"2024-05-03T093000_incomplete",
		"not-a-run",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024-05-04T093000"), nil, 0644))
	require.NoError(t, os.Symlink("2024-05-02T093000", filepath.Join(root, LatestName)))

	runs, err := ListRuns(osfs.New(), root)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "2024-05-01T093000", runs[0].ID)
	assert.True(t, runs[0].Complete)
	assert.False(t, runs[0].Latest)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local), runs[0].Time)

	assert.True(t, runs[1].Latest)

	assert.Equal(t, "2024-05-03T093000", runs[2].ID)
	assert.False(t, runs[2].Complete)
	assert.Equal(t, filepath.Join(root, "2024-05-03T093000_incomplete"), runs[2].Dir)
}

func TestListRunsMissingRoot(t *testing.T) {
	_, err := ListRuns(osfs.New(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestPrune(t *testing.T) {
	root := t.TempDir()
	makeRuns(t, root,
		"2024-05-01T093000",
		"2024-05-02T093000",
		"2024-05-03T093000",
		"2024-05-04T093000_incomplete",
		"2024-05-05T093000",
	)
	require.NoError(t, os.Symlink("2024-05-05T093000", filepath.Join(root, LatestName)))

	deleted, err := Prune(osfs.New(), root, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01T093000", "2024-05-02T093000"}, deleted)

	assert.DirExists(t, filepath.Join(root, "2024-05-03T093000"))
	assert.DirExists(t, filepath.Join(root, "2024-05-04T093000_incomplete"))
	assert.DirExists(t, filepath.Join(root, "2024-05-05T093000"))
}

func TestPruneKeepsLatestTarget(t *testing.T) {
	root := t.TempDir()
	makeRuns(t, root, "2024-05-01T093000", "2024-05-02T093000", "2024-05-03T093000")
	// latest lags behind, e.g. after a crash between rename and swap
	require.NoError(t, os.Symlink("2024-05-01T093000", filepath.Join(root, LatestName)))

	deleted, err := Prune(osfs.New(), root, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-02T093000"}, deleted)
	assert.DirExists(t, filepath.Join(root, "2024-05-01T093000"))
}

func TestPruneNothingToDo(t *testing.T) {
	root := t.TempDir()
	makeRuns(t, root, "2024-05-01T093000")

	for _, keep := range []int{0, 1, 5} {
		deleted, err := Prune(osfs.New(), root, keep)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	}
	assert.DirExists(t, filepath.Join(root, "2024-05-01T093000"))
}
