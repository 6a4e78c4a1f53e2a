package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/rmbak/internal/mocks"
)

func TestWalkPreOrder(t *testing.T) {
	dir := t.TempDir()
	device := mocks.NewDevice()
	device.AddDocument("", "d0", "First", pdf("1", "0"), docModified)
	device.AddCollection("", "a", "A")
	device.AddDocument("a", "d1", "InA", pdf("1", "1"), docModified)
	device.AddCollection("a", "aa", "AA")
	device.AddDocument("aa", "d2", "InAA", pdf("1", "2"), docModified)
	device.AddDocument("a", "d3", "AfterAA", pdf("1", "3"), docModified)
	device.AddDocument("", "d4", "Last", pdf("1", "4"), docModified)

	engine := newTestEngine(device)
	w, err := NewWalker(device, engine, nil, quietLogger())
	require.NoError(t, err)

	require.NoError(t, w.Walk(context.Background(), "", filepath.Join(dir, "run"), ""))

	assert.Equal(t, []string{"d0", "d1", "d2", "d3", "d4"}, device.Fetched)
	assert.Equal(t, []string{"", "a", "aa"}, device.Listed)

	for _, p := range []string{"First.pdf", "A/InA.pdf", "A/AA/InAA.pdf", "A/AfterAA.pdf", "Last.pdf"} {
		assert.FileExists(t, filepath.Join(dir, "run", filepath.FromSlash(p)))
	}
}

func TestWalkDeepTree(t *testing.T) {
	dir := t.TempDir()
	device := mocks.NewDevice()

	parent := ""
	for i := 0; i < 200; i++ {
		parent = device.AddCollection(parent, fmt.Sprintf("c%d", i), "d")
	}
	device.AddDocument(parent, "leaf", "Leaf", pdf("1", "leaf"), docModified)

	w, err := NewWalker(device, newTestEngine(device), nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, w.Walk(context.Background(), "", filepath.Join(dir, "run"), ""))

	assert.Equal(t, []string{"leaf"}, device.Fetched)
}

func TestWalkPreviousPaths(t *testing.T) {
	dir := t.TempDir()
	device := mocks.NewDevice()
	device.AddCollection("", "a", "A")
	device.AddDocument("a", "d", "Doc", pdf("1", "x"), docModified)

	// first run populates the previous directory
	prev := filepath.Join(dir, "prev")
	w, err := NewWalker(device, newTestEngine(device), nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, w.Walk(context.Background(), "", prev, ""))

	engine := newTestEngine(device)
	w, err = NewWalker(device, engine, nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, w.Walk(context.Background(), "", filepath.Join(dir, "next"), prev))

	assert.Equal(t, 1, engine.Stats().Linked)
	assert.True(t, sameFile(t, filepath.Join(prev, "A", "Doc.pdf"), filepath.Join(dir, "next", "A", "Doc.pdf")))
}

func TestWalkUnsafeNames(t *testing.T) {
	for _, name := range []string{"..", ".", "", "../escape", "/abs", "a/b"} {
		t.Run(name, func(t *testing.T) {
			device := mocks.NewDevice()
			device.AddDocument("", "d", name, pdf("1", "x"), docModified)

			w, err := NewWalker(device, newTestEngine(device), nil, quietLogger())
			require.NoError(t, err)

			err = w.Walk(context.Background(), "", filepath.Join(t.TempDir(), "run"), "")
			assert.ErrorIs(t, err, ErrUnsafeName)
			assert.Empty(t, device.Fetched)
		})
	}
}

func TestWalkExcludedUnsafeName(t *testing.T) {
	device := mocks.NewDevice()
	device.AddDocument("", "bad", "..", pdf("1", "x"), docModified)
	device.AddDocument("", "d", "Doc", pdf("1", "x"), docModified)

	w, err := NewWalker(device, newTestEngine(device), []string{".."}, quietLogger())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "run")
	require.NoError(t, w.Walk(context.Background(), "", dir, ""))
	assert.Equal(t, 1, w.Excluded())
	assert.Equal(t, []string{"d"}, device.Fetched)
	assert.FileExists(t, filepath.Join(dir, "Doc.pdf"))
}

func TestWalkListError(t *testing.T) {
	device := mocks.NewDevice()
	device.AddCollection("", "a", "A")
	device.FailOn["a"] = true

	w, err := NewWalker(device, newTestEngine(device), nil, quietLogger())
	require.NoError(t, err)

	err = w.Walk(context.Background(), "", filepath.Join(t.TempDir(), "run"), "")
	assert.ErrorIs(t, err, mocks.ErrInjected)
}

func TestWalkCancelled(t *testing.T) {
	device := mocks.NewDevice()
	device.AddDocument("", "d", "Doc", pdf("1", "x"), docModified)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := NewWalker(device, newTestEngine(device), nil, quietLogger())
	require.NoError(t, err)
	assert.ErrorIs(t, w.Walk(ctx, "", filepath.Join(t.TempDir(), "run"), ""), context.Canceled)
}

func TestExcludes(t *testing.T) {
	w, err := NewWalker(mocks.NewDevice(), nil, []string{"Trash/**", "**/*.epub", "Archive"}, quietLogger())
	require.NoError(t, err)

	tests := []struct {
		rel  string
		want bool
	}{
		{"Trash/Old", true},
		{"Book.epub", true},
		{"Shelf/Book.epub", true},
		{"Archive", true},
		{"Archive2", false},
		{"Work/Notes", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.excludes(tt.rel), tt.rel)
	}
}
