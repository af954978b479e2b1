// Package cli implements the fulltext command line tool, which drives the
// flat-file index directly without the HTTP services.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/pkg/logger"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfgFile  string
	dataDir  string
	logLevel string

	cfg    *config.Config
	engine *indexer.Engine
}

// Execute runs the command tree against os.Args and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds the fulltext command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fulltext",
		Short: "Flat-file fulltext index tool",
		Long: `fulltext manages an inverted index kept in plain line-oriented files.

Example usage:
  fulltext index wiki:cats notes/cats.txt   # Index one entity
  fulltext index-dir ./docs --include "**/*.md"
  fulltext search "cats -dogs"              # Query the index
  fulltext histogram --min 5                # Most frequent tokens`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (defaults apply when empty)")
	root.PersistentFlags().StringVarP(&a.dataDir, "data-dir", "d", "", "index directory (overrides indexer.dataDir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.indexCmd(),
		a.indexDirCmd(),
		a.deleteCmd(),
		a.renameCmd(),
		a.entitiesCmd(),
		a.clearCmd(),
		a.searchCmd(),
		a.lookupCmd(),
		a.histogramCmd(),
	)
	return root
}

func (a *app) open(logOut io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dataDir != "" {
		cfg.Indexer.DataDir = a.dataDir
	}
	logger.SetupWriter(logOut, a.logLevel, "text")

	engine, err := indexer.NewEngine(cfg.Indexer, nil)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	a.cfg = cfg
	a.engine = engine
	return nil
}

func (a *app) close() error {
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
