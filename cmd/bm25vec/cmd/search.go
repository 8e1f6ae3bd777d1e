package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	"github.com/Aman-CERP/bm25vec/internal/corpus"
	"github.com/Aman-CERP/bm25vec/internal/output"
	"github.com/Aman-CERP/bm25vec/internal/search"
	"github.com/Aman-CERP/bm25vec/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	corpus    string
	model     string
	fit       bool
	limit     int
	minScore  float64
	highlight bool
	format    string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank the documents of a corpus against a query",
		Long: `Search scores every document of --corpus against the query with a fitted
model and prints the best matches. Only documents containing at least one
query feature are returned; equal scores keep corpus order.

With --fit the corpus is fitted in memory instead of loading a saved model.`,
		Example: `  bm25vec search "cat sat" --corpus docs.txt
  bm25vec search "error handling" --corpus docs.jsonl -n 5 --highlight
  bm25vec search "quick fox" --corpus docs.txt --fit --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.corpus, "corpus", "c", "", "Corpus file to search (required)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", store.DefaultModelName, "Model to score with")
	cmd.Flags().BoolVar(&opts.fit, "fit", false, "Fit the corpus in memory instead of loading a model")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Drop results scoring below this")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", false, "Report where matched terms occur")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("corpus")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	docs, err := corpus.LoadFile(opts.corpus)
	if err != nil {
		return err
	}

	var m *bm25.Model
	if opts.fit {
		vopts, err := cfg.ToOptions()
		if err != nil {
			return err
		}
		v, err := bm25.New(vopts)
		if err != nil {
			return err
		}
		m = v.Fit(corpus.Texts(docs))
	} else if m, err = loadModel(cmd.Context(), cfg, opts.model); err != nil {
		return err
	}

	engineCfg := search.DefaultConfig()
	engineCfg.CacheSize = cfg.Performance.CacheSize
	engine, err := search.NewEngine(m, docs, search.WithConfig(engineCfg))
	if err != nil {
		return err
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	results, err := engine.Search(cmd.Context(), query, search.SearchOptions{
		Limit:     opts.limit,
		MinScore:  opts.minScore,
		Highlight: opts.highlight,
	})
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return formatSearchResults(output.New(cmd.OutOrStdout()), query, results, opts.highlight)
}

func formatSearchResults(out *output.Writer, query string, results []*search.SearchResult, highlight bool) error {
	if len(results) == 0 {
		out.Warningf("No documents match %q", query)
		return nil
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		text := r.Document.Text
		if highlight {
			text = markRanges(text, r.Highlights)
		}
		rows[i] = []string{
			strconv.Itoa(r.Rank),
			r.Document.ID,
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			strings.Join(r.MatchedTerms, ","),
			truncate(text, 80),
		}
	}
	out.Table([]string{"#", "ID", "SCORE", "MATCHED", "TEXT"}, rows)
	return nil
}

// markRanges wraps each highlighted range of text in [brackets].
func markRanges(text string, ranges []search.Range) string {
	var b strings.Builder
	last := 0
	for _, r := range ranges {
		if r.Start < last || r.End > len(text) {
			continue
		}
		b.WriteString(text[last:r.Start])
		fmt.Fprintf(&b, "[%s]", text[r.Start:r.End])
		last = r.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
