package launchd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePlist(t *testing.T) {
	var buf bytes.Buffer
	err := WritePlist(&buf, PlistConfig{
		BinaryPath: "/usr/local/bin/rmbak",
		BackupRoot: "/Volumes/Backup/tablet",
		Hour:       3,
		Minute:     30,
		LogPath:    "/Users/me/.rmbak/rmbak.log",
	})
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{
		"<string>com.user.rmbak</string>",
		"<string>/usr/local/bin/rmbak</string>\n        <string>run</string>\n        <string>/Volumes/Backup/tablet</string>",
		"<integer>3</integer>",
		"<integer>30</integer>",
		"<string>/Users/me/.rmbak/rmbak.log</string>",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWritePlistInvalidSchedule(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePlist(&buf, PlistConfig{Hour: 24}))
	assert.Error(t, WritePlist(&buf, PlistConfig{Minute: -1}))
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "Library", "LaunchAgents", "com.user.rmbak.plist"), PlistPath())
	assert.Equal(t, filepath.Join(home, ".rmbak", "rmbak.log"), LogPath())
	assert.False(t, IsInstalled(), "no plist written yet")
}
