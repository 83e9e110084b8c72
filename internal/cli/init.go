package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/vhist/internal/config"
	"github.com/kilupskalvis/vhist/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vhist workspace",
	Long: `Initialize a new vhist workspace in the current directory.
This creates a .vhist directory holding the configuration and the batch journal.`,
	Run: runInit,
}

var initBackend string

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", config.DefaultBackend, "Journal backend (bbolt|sqlite)")
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("vhist workspace already exists")
	}
	if initBackend != store.BackendBbolt && initBackend != store.BackendSQLite {
		exitError("unknown journal backend %q (expected bbolt or sqlite)", initBackend)
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	cfg, err := config.Initialize(cwd, initBackend)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	j, err := store.Open(cfg.JournalBackend, cfg.JournalPath())
	if err != nil {
		exitError("failed to create journal: %v", err)
	}
	j.Close()

	fmt.Printf("Initialized empty vhist workspace in %s\n", cfg.Path())
	fmt.Printf("Journal: %s (%s)\n", cfg.JournalPath(), cfg.JournalBackend)
}
