// Package launchd installs a macOS launch agent that runs a backup daily.
package launchd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const label = "com.user.rmbak"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.BinaryPath}}</string>
        <string>run</string>
        <string>{{.BackupRoot}}</string>
    </array>
    <key>StartCalendarInterval</key>
    <dict>
        <key>Hour</key>
        <integer>{{.Hour}}</integer>
        <key>Minute</key>
        <integer>{{.Minute}}</integer>
    </dict>
    <key>RunAtLoad</key>
    <false/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`

type PlistConfig struct {
	Label      string
	BinaryPath string
	BackupRoot string
	Hour       int
	Minute     int
	LogPath    string
}

var tmpl = template.Must(template.New("plist").Parse(plistTemplate))

func PlistPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "." // Fallback - will fail gracefully when accessing Library/LaunchAgents
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist")
}

func LogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "." // Fallback to current directory
	}
	return filepath.Join(home, ".rmbak", "rmbak.log")
}

// WritePlist renders the launch agent definition.
func WritePlist(w io.Writer, cfg PlistConfig) error {
	if cfg.Label == "" {
		cfg.Label = label
	}
	if cfg.Hour < 0 || cfg.Hour > 23 || cfg.Minute < 0 || cfg.Minute > 59 {
		return fmt.Errorf("invalid schedule %02d:%02d", cfg.Hour, cfg.Minute)
	}
	return tmpl.Execute(w, cfg)
}

// Install schedules a daily "rmbak run <backupRoot>" at hour:minute.
func Install(backupRoot string, hour, minute int) error {
	binaryPath, err := exec.LookPath("rmbak")
	if err != nil {
		return fmt.Errorf("rmbak not found in PATH: %w", err)
	}

	absRoot, err := filepath.Abs(backupRoot)
	if err != nil {
		return fmt.Errorf("resolving backup root: %w", err)
	}

	// Ensure log directory exists
	logPath := LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	// Ensure LaunchAgents directory exists
	plistPath := PlistPath()
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}

	f, err := os.Create(plistPath)
	if err != nil {
		return fmt.Errorf("creating plist: %w", err)
	}

	err = WritePlist(f, PlistConfig{
		BinaryPath: binaryPath,
		BackupRoot: absRoot,
		Hour:       hour,
		Minute:     minute,
		LogPath:    logPath,
	})
	if err != nil {
		f.Close()
		return fmt.Errorf("writing plist: %w", err)
	}

	// Close file BEFORE loading to ensure data is flushed
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing plist file: %w", err)
	}

	cmd := exec.Command("launchctl", "load", plistPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}

	return nil
}

func Uninstall() error {
	plistPath := PlistPath()

	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		return fmt.Errorf("plist not found: %s", plistPath)
	}

	cmd := exec.Command("launchctl", "unload", plistPath)
	_ = cmd.Run() // Ignore error if not loaded

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("removing plist: %w", err)
	}

	return nil
}

func IsInstalled() bool {
	_, err := os.Stat(PlistPath())
	return err == nil
}

func Status() (bool, error) {
	if !IsInstalled() {
		return false, nil
	}

	cmd := exec.Command("launchctl", "list", label)
	err := cmd.Run()
	return err == nil, nil
}
