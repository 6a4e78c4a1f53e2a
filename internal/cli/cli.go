// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mcdonaldj/rmbak/internal/adapters/osfs"
	"github.com/mcdonaldj/rmbak/internal/adapters/reqdevice"
	"github.com/mcdonaldj/rmbak/internal/backup"
	"github.com/mcdonaldj/rmbak/internal/config"
	"github.com/mcdonaldj/rmbak/internal/launchd"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() (*config.Config, error)
}

// BackupService provides backup operations for the CLI.
type BackupService interface {
	Run(ctx context.Context, cfg *config.Config, root string, logger *slog.Logger) (*backup.Result, error)
	ListRuns(root string) ([]backup.RunInfo, error)
	Prune(root string, keepLast int) ([]string, error)
}

// LaunchdService provides launchd operations for the CLI.
type LaunchdService interface {
	IsInstalled() bool
	Install(root string, hour, minute int) error
	Uninstall() error
	Status() (bool, error)
	PlistPath() string
	LogPath() string
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Logger receives progress of backup runs; Level controls its verbosity
	Logger *slog.Logger
	Level  *slog.LevelVar

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	BackupSvc  BackupService
	LaunchdSvc LaunchdService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string, logger *slog.Logger, level *slog.LevelVar) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		Logger:  logger,
		Level:   level,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Level:   new(slog.LevelVar),
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error)          { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error          { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error)            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() (*config.Config, error) { return config.DefaultConfig() }

// defaultBackupService runs backups against the configured device on the
// real filesystem.
type defaultBackupService struct{}

func (d *defaultBackupService) Run(ctx context.Context, cfg *config.Config, root string, logger *slog.Logger) (*backup.Result, error) {
	device := reqdevice.New(cfg.DeviceURL, cfg.Timeout)
	runner := backup.NewDefaultRunner(device, backup.Options{
		Exclude:  cfg.Exclude,
		KeepLast: cfg.Retention.KeepLast,
		Logger:   logger,
	})
	return runner.Run(ctx, root)
}

func (d *defaultBackupService) ListRuns(root string) ([]backup.RunInfo, error) {
	return backup.ListRuns(osfs.New(), root)
}

func (d *defaultBackupService) Prune(root string, keepLast int) ([]string, error) {
	return backup.Prune(osfs.New(), root, keepLast)
}

// defaultLaunchdService wraps the launchd package functions.
type defaultLaunchdService struct{}

func (d *defaultLaunchdService) IsInstalled() bool { return launchd.IsInstalled() }
func (d *defaultLaunchdService) Install(root string, hour, minute int) error {
	return launchd.Install(root, hour, minute)
}
func (d *defaultLaunchdService) Uninstall() error      { return launchd.Uninstall() }
func (d *defaultLaunchdService) Status() (bool, error) { return launchd.Status() }
func (d *defaultLaunchdService) PlistPath() string     { return launchd.PlistPath() }
func (d *defaultLaunchdService) LogPath() string       { return launchd.LogPath() }

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) backupSvc() BackupService {
	if c.BackupSvc != nil {
		return c.BackupSvc
	}
	return &defaultBackupService{}
}

func (c *CLI) launchdSvc() LaunchdService {
	if c.LaunchdSvc != nil {
		return c.LaunchdSvc
	}
	return &defaultLaunchdService{}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run(ctx context.Context) {
	args := c.parseGlobalFlags(c.Args)
	if len(args) < 2 {
		c.PrintUsage()
		c.Exit(1)
		return
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "run":
		c.RunBackup(ctx, rest)
	case "list":
		c.ListRuns(rest)
	case "prune":
		c.PruneRuns(rest)
	case "init":
		c.InitConfig()
	case "install":
		c.InstallLaunchd(rest)
	case "uninstall":
		c.UninstallLaunchd()
	case "status":
		c.ShowStatus()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "rmbak v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		if strings.HasPrefix(cmd, "-") || len(rest) > 0 {
			fmt.Fprintf(c.Err, "Unknown command: %s\n", cmd)
			c.PrintUsage()
			c.Exit(1)
			return
		}
		// rmbak <backup_root>
		c.RunBackup(ctx, args[1:])
	}
}

// parseGlobalFlags strips -V/--verbose and raises the log level.
func (c *CLI) parseGlobalFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if i > 0 && (arg == "-V" || arg == "--verbose") {
			if c.Level != nil {
				c.Level.Set(slog.LevelDebug)
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `rmbak - Incremental Tablet Document Backup

Usage:
  rmbak <backup_root>                Back up the tablet into backup_root
  rmbak run [backup_root]            Same, defaulting to backup_root from config
  rmbak list [backup_root]           List backup runs
  rmbak prune [backup_root] [--keep=N]
                                     Remove old runs (default keep: retention.keep_last)
  rmbak install [backup_root]        Install daily launchd schedule
  rmbak uninstall                    Remove launchd schedule
  rmbak status                       Show configuration and launchd status
  rmbak init                         Create default config file
  rmbak version, -v                  Show version
  rmbak help, -h                     Show this help

Flags:
  -V, --verbose                      Debug logging

Config: ~/.rmbak/config.yaml`)
}

func (c *CLI) fail(format string, a ...interface{}) {
	fmt.Fprintf(c.Err, "%s "+format+"\n", append([]interface{}{c.red("Error:")}, a...)...)
	c.Exit(1)
}

func (c *CLI) loadConfig() (*config.Config, bool) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		c.fail("loading config: %v", err)
		return nil, false
	}
	return cfg, true
}

// backupRoot picks the root from args or falls back to the config.
func (c *CLI) backupRoot(cfg *config.Config, args []string) (string, bool) {
	root := cfg.BackupRoot
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			root = arg
			break
		}
	}
	if root == "" {
		c.fail("no backup root given and none configured")
		return "", false
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		c.fail("%v", err)
		return "", false
	}
	return expanded, true
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	cfg, err := svc.DefaultConfig()
	if err != nil {
		c.fail("%v", err)
		return
	}
	if err := svc.Save(cfg); err != nil {
		c.fail("saving config: %v", err)
		return
	}
	path, err := svc.ConfigPath()
	if err != nil {
		c.fail("%v", err)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
}

// RunBackup runs one backup.
func (c *CLI) RunBackup(ctx context.Context, args []string) {
	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	root, ok := c.backupRoot(cfg, args)
	if !ok {
		return
	}

	fmt.Fprintf(c.Out, "%s Backing up %s into %s...\n", c.cyan("=>"), cfg.DeviceURL, root)

	result, err := c.backupSvc().Run(ctx, cfg, root, c.Logger)
	if err != nil {
		c.fail("%v", err)
		return
	}

	fmt.Fprintln(c.Out)
	if result.NothingSynced {
		fmt.Fprintf(c.Out, "  %s %s\n", c.gray("-"), c.gray("nothing to sync"))
		return
	}

	fmt.Fprintf(c.Out, "  %s %s %s downloaded (%s), %s unchanged",
		c.green("*"),
		result.ID,
		c.green(strconv.Itoa(result.Downloaded)),
		c.yellow(backup.FormatSize(result.Bytes)),
		c.gray(strconv.Itoa(result.Linked)))
	if result.Excluded > 0 {
		fmt.Fprintf(c.Out, ", %s excluded", c.gray(strconv.Itoa(result.Excluded)))
	}
	fmt.Fprintln(c.Out)
	if len(result.Pruned) > 0 {
		fmt.Fprintf(c.Out, "  %s pruned %s\n", c.yellow("-"), strings.Join(result.Pruned, ", "))
	}
	fmt.Fprintf(c.Out, "\nDone: %s -> %s\n", backup.LatestName, result.Dir)
}

// ListRuns lists all runs under the backup root.
func (c *CLI) ListRuns(args []string) {
	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	root, ok := c.backupRoot(cfg, args)
	if !ok {
		return
	}

	runs, err := c.backupSvc().ListRuns(root)
	if err != nil {
		c.fail("%v", err)
		return
	}

	if len(runs) == 0 {
		fmt.Fprintf(c.Out, "No backups found in %s\n", root)
		return
	}

	fmt.Fprintf(c.Out, "Backups in %s:\n\n", c.cyan(root))
	fmt.Fprintf(c.Out, "  %-20s %-20s %s\n", "RUN", "CREATED", "STATUS")
	fmt.Fprintf(c.Out, "  %-20s %-20s %s\n", "---", "-------", "------")

	for _, r := range runs {
		status := c.green("complete")
		switch {
		case !r.Complete:
			status = c.red("incomplete")
		case r.Latest:
			status = c.green("complete") + " " + c.cyan("(latest)")
		}
		fmt.Fprintf(c.Out, "  %-20s %-20s %s\n", r.ID, r.Time.Format("2006-01-02 15:04:05"), status)
	}
}

// PruneRuns removes old completed runs.
func (c *CLI) PruneRuns(args []string) {
	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	root, ok := c.backupRoot(cfg, args)
	if !ok {
		return
	}

	keep := cfg.Retention.KeepLast
	for _, arg := range args {
		if v, found := strings.CutPrefix(arg, "--keep="); found {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.fail("--keep must be a positive number, got %q", v)
				return
			}
			keep = n
		}
	}
	if keep <= 0 {
		fmt.Fprintln(c.Out, "Retention disabled (retention.keep_last is 0). Use --keep=N.")
		c.Exit(1)
		return
	}

	deleted, err := c.backupSvc().Prune(root, keep)
	for _, id := range deleted {
		fmt.Fprintf(c.Out, "  %s removed %s\n", c.yellow("-"), id)
	}
	if err != nil {
		c.fail("%v", err)
		return
	}
	fmt.Fprintf(c.Out, "Done: %s removed, keeping last %d\n", c.green(strconv.Itoa(len(deleted))), keep)
}

// InstallLaunchd installs the launchd schedule.
func (c *CLI) InstallLaunchd(args []string) {
	svc := c.launchdSvc()

	if svc.IsInstalled() {
		fmt.Fprintln(c.Out, "launchd already installed. Uninstall first to reinstall.")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	root, ok := c.backupRoot(cfg, args)
	if !ok {
		return
	}
	hour, minute, err := cfg.ScheduleTime()
	if err != nil {
		c.fail("%v", err)
		return
	}

	if err := svc.Install(root, hour, minute); err != nil {
		c.fail("installing launchd: %v", err)
		return
	}

	fmt.Fprintf(c.Out, "%s Installed launchd schedule (daily at %02d:%02d)\n", c.green("*"), hour, minute)
	fmt.Fprintf(c.Out, "  Root:  %s\n", root)
	fmt.Fprintf(c.Out, "  Plist: %s\n", svc.PlistPath())
	fmt.Fprintf(c.Out, "  Log:   %s\n", svc.LogPath())
}

// UninstallLaunchd removes the launchd schedule.
func (c *CLI) UninstallLaunchd() {
	svc := c.launchdSvc()

	if !svc.IsInstalled() {
		fmt.Fprintln(c.Out, "launchd not installed.")
		c.Exit(1)
		return
	}

	if err := svc.Uninstall(); err != nil {
		c.fail("uninstalling launchd: %v", err)
		return
	}

	fmt.Fprintf(c.Out, "%s Uninstalled launchd schedule\n", c.yellow("-"))
}

// ShowStatus shows the current status.
func (c *CLI) ShowStatus() {
	cfgSvc := c.configSvc()
	launchdSvc := c.launchdSvc()

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	configPath, err := cfgSvc.ConfigPath()
	if err != nil {
		c.fail("%v", err)
		return
	}

	fmt.Fprintln(c.Out, "rmbak status:")
	fmt.Fprintf(c.Out, "  Device:  %s\n", cfg.DeviceURL)
	fmt.Fprintf(c.Out, "  Backup:  %s\n", cfg.BackupRoot)
	fmt.Fprintf(c.Out, "  Config:  %s\n", configPath)

	if launchdSvc.IsInstalled() {
		loaded, _ := launchdSvc.Status()
		if loaded {
			fmt.Fprintf(c.Out, "  launchd: %s\n", c.green("installed & loaded"))
		} else {
			fmt.Fprintf(c.Out, "  launchd: %s\n", c.gray("installed (not loaded)"))
		}
	} else {
		fmt.Fprintf(c.Out, "  launchd: %s\n", c.gray("not installed"))
	}
}
