// Package cmd provides the CLI commands for wiz2joplin.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
	"github.com/rongzh/wiz2joplin/internal/cache"
	"github.com/rongzh/wiz2joplin/internal/joplin"
	"github.com/rongzh/wiz2joplin/internal/sync"
	"github.com/rongzh/wiz2joplin/internal/version"
	"github.com/rongzh/wiz2joplin/internal/wiz"
)

// defaultOutputDir holds the migration state: the local store and the
// extracted note archives.
const defaultOutputDir = "w2j"

var (
	// konfig is the global koanf instance.
	konfig = koanf.New(".")
)

// verboseFlag is the shared verbose flag for all commands.
var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "Enable verbose logging",
}

// LogFormat represents the log output format.
type LogFormat string

const (
	// LogFormatText is the human-readable text format (default).
	LogFormatText LogFormat = "text"
	// LogFormatJSON is the JSON-formatted structured logs.
	LogFormatJSON LogFormat = "json"
)

// getLogFormat returns the configured log format from the W2J_LOG_FORMAT
// environment variable.
func getLogFormat() LogFormat {
	val := strings.ToLower(os.Getenv("W2J_LOG_FORMAT"))
	switch val {
	case "json":
		return LogFormatJSON
	case "text", "":
		return LogFormatText
	default:
		// Invalid format - will warn after logger is set up
		return LogFormatText
	}
}

// setupLogging configures the global logger based on the verbose flag and
// W2J_LOG_FORMAT.
func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}

	format := getLogFormat()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))

	envVal := strings.ToLower(os.Getenv("W2J_LOG_FORMAT"))
	if envVal != "" && envVal != "text" && envVal != "json" {
		slog.Warn("Invalid W2J_LOG_FORMAT value, using text format", "value", envVal)
	}

	if level == slog.LevelDebug {
		slog.Debug("Verbose logging enabled")
	}
}

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "wiz2joplin",
		Usage:   "Migrate WizNote documents, attachments and tags into Joplin",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wiz-dir",
				Usage:   "WizNote data directory (the one containing the per-account folders)",
				Sources: cli.EnvVars("W2J_WIZ_DIR"),
			},
			&cli.StringFlag{
				Name:    "wiz-user",
				Usage:   "WizNote account id (the login email)",
				Sources: cli.EnvVars("W2J_WIZ_USER"),
			},
			&cli.BoolFlag{
				Name:    "group",
				Usage:   "Read the account's group store instead of the personal one",
				Sources: cli.EnvVars("W2J_GROUP"),
			},
			&cli.StringFlag{
				Name:    "joplin-host",
				Usage:   "Joplin Web Clipper service host",
				Value:   joplin.DefaultHost,
				Sources: cli.EnvVars("W2J_JOPLIN_HOST"),
			},
			&cli.IntFlag{
				Name:    "joplin-port",
				Usage:   "Joplin Web Clipper service port",
				Value:   joplin.DefaultPort,
				Sources: cli.EnvVars("W2J_JOPLIN_PORT"),
			},
			&cli.StringFlag{
				Name:    "joplin-token",
				Usage:   "Joplin Web Clipper API token",
				Sources: cli.EnvVars("W2J_JOPLIN_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for migration state (local store and extracted notes)",
				Value:   defaultOutputDir,
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			// Load environment variables with W2J_ prefix
			if err := konfig.Load(env.Provider(".", env.Opt{
				Prefix: "W2J_",
			}), nil); err != nil {
				return ctx, fmt.Errorf("load env: %w", err)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			syncCommand(),
			statusCommand(),
			pingCommand(),
		},
	}
}

// syncCommand creates the sync subcommand.
func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Migrate documents into Joplin, resuming from previous runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "location",
				Aliases: []string{"l"},
				Usage:   "Only migrate documents under this location (e.g. /My Notes/)",
			},
			&cli.BoolFlag{
				Name:    "children",
				Aliases: []string{"r"},
				Usage:   "Include every location below --location",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Migrate every document in the account",
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			location := cmd.String("location")
			all := cmd.Bool("all")
			if !all && location == "" {
				return apperrors.ErrLocationRequired
			}

			client, store, storage, err := setupMigration(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()   //nolint:errcheck // read-mostly store, best effort
			defer storage.Close() //nolint:errcheck // read-only catalog

			syncer := sync.NewSyncer(client, store, storage, sync.WithLogger(slog.Default()))

			var result *sync.Result
			if all {
				result, err = syncer.SyncAll(ctx)
			} else {
				result, err = syncer.SyncLocation(ctx, location, cmd.Bool("children"))
			}
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			displaySyncResult(result)
			if result.Skipped > 0 {
				slog.Warn("some documents were skipped, rerun after fixing them", "count", result.Skipped)
			}
			return nil
		},
	}
}

// statusCommand creates the status subcommand.
func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show what previous runs have migrated",
		Flags: []cli.Flag{
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // read-only here

			displayStats(resolveOutputDir(cmd), store.Stats())
			return nil
		},
	}
}

// pingCommand creates the ping subcommand.
func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the Joplin Web Clipper service is answering",
		Flags: []cli.Flag{
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := joplin.NewClient(
				cmd.String("joplin-host"), cmd.Int("joplin-port"), cmd.String("joplin-token"),
				joplin.WithLogger(slog.Default()))
			if err := client.Ping(ctx); err != nil {
				return err
			}
			displayPingOK(cmd.String("joplin-host"), cmd.Int("joplin-port"))
			return nil
		},
	}
}

// resolveOutputDir returns the state directory from the W2J_DIR env var or
// the --output flag.
func resolveOutputDir(cmd *cli.Command) string {
	if dir := os.Getenv("W2J_DIR"); dir != "" {
		return dir
	}

	out := cmd.String("output")
	if out == "" {
		out = defaultOutputDir
	}
	return out
}

// openStore opens the local store under the state directory.
func openStore(cmd *cli.Command) (*cache.Store, error) {
	out := resolveOutputDir(cmd)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	store, err := cache.Open(filepath.Join(out, "w2j.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return store, nil
}

// setupMigration builds the Joplin client, the local store and the account
// storage from the command flags, and verifies the Web Clipper service is up
// before anything else runs.
func setupMigration(ctx context.Context, cmd *cli.Command) (*joplin.Client, *cache.Store, *wiz.Storage, error) {
	token := cmd.String("joplin-token")
	if token == "" {
		return nil, nil, nil, apperrors.ErrTokenRequired
	}
	wizDir := cmd.String("wiz-dir")
	if wizDir == "" {
		return nil, nil, nil, apperrors.ErrWizDirRequired
	}
	wizUser := cmd.String("wiz-user")
	if wizUser == "" {
		return nil, nil, nil, apperrors.ErrWizUserRequired
	}

	client := joplin.NewClient(
		cmd.String("joplin-host"), cmd.Int("joplin-port"), token,
		joplin.WithLogger(slog.Default()))
	if err := client.Ping(ctx); err != nil {
		return nil, nil, nil, err
	}

	store, err := openStore(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	storage, err := wiz.OpenStorage(wizDir, wizUser, cmd.Bool("group"),
		wiz.WithLogger(slog.Default()),
		wiz.WithWorkDir(filepath.Join(resolveOutputDir(cmd), "notes")))
	if err != nil {
		store.Close() //nolint:errcheck // failing open path
		return nil, nil, nil, err
	}

	return client, store, storage, nil
}
