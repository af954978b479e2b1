package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

func (a *app) indexCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "index <entity> [file]",
		Short: "Index one entity",
		Long: `Replace the token set of an entity with the tokens of the given text.
The text comes from --text, from a file argument, or from stdin.

Examples:
  fulltext index wiki:cats notes/cats.txt
  echo "cats chase mice" | fulltext index wiki:cats
  fulltext index wiki:cats --text ""        # Remove every token of wiki:cats`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			if !cmd.Flags().Changed("text") {
				var err error
				text, err = readSource(cmd.InOrStdin(), args[1:])
				if err != nil {
					return err
				}
			}
			tokens := a.engine.Tokenizer().Tokenize(text)
			if err := a.engine.AddEntity(cmd.Context(), entity, tokens); err != nil {
				return fmt.Errorf("indexing %s: %w", entity, err)
			}
			printf(cmd.OutOrStdout(), "indexed %s (%d tokens)\n", entity, len(tokens))
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to index instead of a file or stdin")
	return cmd
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

type indexDirOptions struct {
	includes []string
	excludes []string
	prefix   string
	workers  int
	quiet    bool
}

func (a *app) indexDirCmd() *cobra.Command {
	opts := indexDirOptions{}
	cmd := &cobra.Command{
		Use:   "index-dir <dir>",
		Short: "Index every matching file below a directory",
		Long: `Index each file below dir as one entity named by its slash-separated
path relative to dir, optionally prefixed.

Examples:
  fulltext index-dir ./docs
  fulltext index-dir ./docs --include "**/*.md" --exclude "drafts/**" --prefix docs:`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndexDir(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.includes, "include", []string{"**"}, "glob patterns of files to index")
	cmd.Flags().StringSliceVar(&opts.excludes, "exclude", nil, "glob patterns of files to skip")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "prefix added to every entity name")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "files read and tokenized in parallel")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

func (a *app) runIndexDir(cmd *cobra.Command, dir string, opts indexDirOptions) error {
	files, err := collectFiles(dir, opts.includes, opts.excludes)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		printf(out, "no files matched in %s\n", dir)
		return nil
	}

	progressOut := cmd.ErrOrStderr()
	if opts.quiet {
		progressOut = io.Discard
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionClearOnFinish(),
	)

	var indexed, tokens atomic.Int64
	p := pool.New().WithMaxGoroutines(max(opts.workers, 1)).WithContext(cmd.Context())
	for _, rel := range files {
		p.Go(func(ctx context.Context) error {
			defer bar.Add(1)
			entity := opts.prefix + rel
			n, err := a.indexFile(ctx, entity, filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			indexed.Add(1)
			tokens.Add(int64(n))
			return nil
		})
	}
	err = p.Wait()
	bar.Finish()

	printf(out, "indexed %d of %d files (%d tokens)\n", indexed.Load(), len(files), tokens.Load())
	return err
}

func (a *app) indexFile(ctx context.Context, entity, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	tokens := a.engine.Tokenizer().Tokenize(string(data))
	if err := a.engine.AddEntity(ctx, entity, tokens); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", entity, err)
	}
	return len(tokens), nil
}

// collectFiles returns the slash-separated paths of regular files below dir
// that match an include pattern and no exclude pattern.
func collectFiles(dir string, includes, excludes []string) ([]string, error) {
	for _, pattern := range append(append([]string{}, includes...), excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(includes, rel) && !matchAny(excludes, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
