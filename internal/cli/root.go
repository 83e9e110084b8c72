// Package cli implements the command-line interface for vhist.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kilupskalvis/vhist/internal/config"
	"github.com/kilupskalvis/vhist/internal/history"
	"github.com/kilupskalvis/vhist/internal/ingest"
	"github.com/kilupskalvis/vhist/internal/store"
	"github.com/spf13/cobra"
)

var verbose bool

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Journal store.Journal
	Logger  *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Journal != nil {
		c.Journal.Close()
		c.Journal = nil
	}
}

// initContext loads the config and opens the journal
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	j, err := store.Open(cfg.JournalBackend, cfg.JournalPath())
	if err != nil {
		exitError("failed to open journal: %v", err)
	}

	level := cfg.LogLevel
	if !verbose {
		level = "warn"
	}

	return &cmdContext{
		Config:  cfg,
		Journal: j,
		Logger:  newLogger(os.Stderr, level, cfg.LogFormat),
	}
}

// fail releases the context's resources, then exits like exitError
func (c *cmdContext) fail(format string, args ...interface{}) {
	c.Close()
	exitError(format, args...)
}

// buildModel replays the whole journal into a fresh model
func (c *cmdContext) buildModel(ctx context.Context) (*history.Guarded, []*ingest.Result, error) {
	model := history.NewGuarded(history.New())
	runner := ingest.NewRunner(model, nil, c.Logger)

	results, err := runner.Replay(ctx, c.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	return model, results, nil
}

var rootCmd = &cobra.Command{
	Use:   "vhist",
	Short: "Historical index of communes and voies",
	Long: `vhist keeps a journal of feed batches (commune and voie records plus
predecessor links) and rebuilds from it an index of communes, their voies,
the full label history of every voie and the communes cancelled so far.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(communesCmd)
	rootCmd.AddCommand(voiesCmd)
	rootCmd.AddCommand(libellesCmd)
	rootCmd.AddCommand(cancelledCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds a slog logger from level and format settings
func newLogger(w io.Writer, logLevel, logFormat string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
