package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/parser"
)

func (a *app) searchCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Run a query against the index. Terms are combined with AND unless the
query contains OR; NOT or a leading '-' excludes a term and a '*' at either
end of a term matches any token containing the rest.

Examples:
  fulltext search "cats chase"
  fulltext search "cats OR dogs" --limit 5
  fulltext search "test* -tester" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("limit must be a positive integer")
			}
			plan := parser.Parse(strings.Join(args, " "))
			result, err := executor.New(a.engine).Execute(cmd.Context(), plan, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printResults(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printResults(w io.Writer, result *executor.SearchResult) {
	if len(result.Results) == 0 {
		printf(w, "no matches for %q\n", result.Query)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, doc := range result.Results {
		fmt.Fprintf(tw, "%s\t%d\n", doc.Entity, doc.Hits)
	}
	tw.Flush()
	printf(w, "%d of %d matches\n", len(result.Results), result.TotalHits)
}

func (a *app) lookupCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lookup <term>...",
		Short: "Show per-entity hit counts for raw terms",
		Long: `Look terms up without query parsing. Each term may carry a leading
or trailing '*'. Entities are listed per term with the number of times the
term occurs in them.

Examples:
  fulltext lookup cats dogs
  fulltext lookup "*ing" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hits, err := a.engine.LookupWords(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, hits)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, term := range args {
				entities := hits[term]
				if len(entities) == 0 {
					fmt.Fprintf(tw, "%s\t-\t0\n", term)
					continue
				}
				names := make([]string, 0, len(entities))
				for name := range entities {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", term, name, entities[name])
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

type tokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

func (a *app) histogramCmd() *cobra.Command {
	var (
		minCount, maxCount, minLen int
		asJSON                     bool
	)
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Show total occurrences per token",
		Long: `List tokens with their total occurrence count across all entities,
most frequent first. --max only applies when it is greater than --min.

Examples:
  fulltext histogram --min 10
  fulltext histogram --min 2 --max 50 --min-len 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := a.engine.Histogram(minCount, maxCount, minLen)
			if err != nil {
				return fmt.Errorf("histogram failed: %w", err)
			}
			entries := make([]tokenCount, 0, len(counts))
			for token, n := range counts {
				entries = append(entries, tokenCount{Token: token, Count: n})
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].Count != entries[j].Count {
					return entries[i].Count > entries[j].Count
				}
				return entries[i].Token < entries[j].Token
			})
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\n", e.Token, e.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&minCount, "min", 1, "minimum total count")
	cmd.Flags().IntVar(&maxCount, "max", 0, "maximum total count, ignored unless greater than --min")
	cmd.Flags().IntVar(&minLen, "min-len", 0, "minimum token length")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
