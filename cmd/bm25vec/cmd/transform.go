package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/bm25vec/internal/corpus"
	"github.com/Aman-CERP/bm25vec/internal/output"
	"github.com/Aman-CERP/bm25vec/internal/store"
)

// transformOptions holds CLI flags for transform.
type transformOptions struct {
	model   string
	query   string
	weights bool
	format  string
}

// scoredDocument is one JSON output line of transform.
type scoredDocument struct {
	ID      string             `json:"id"`
	Score   float64            `json:"score"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

func newTransformCmd() *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform <corpus>",
		Short: "Score every document of a corpus against a fitted model",
		Long: `Transform counts each document against the model's frozen vocabulary and
prints its BM25 score. The corpus may differ from the one the model was
fitted on; idf and the average document length are never recomputed.

With --query the score only sums over the query's features. With --weights
the per-feature BM25 contributions of each document are printed as well.`,
		Example: `  bm25vec transform new-docs.txt
  bm25vec transform docs.jsonl --query "cat sat" --format json
  bm25vec transform docs.txt --weights --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", store.DefaultModelName, "Model to score with")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Only count features that occur in this query")
	cmd.Flags().BoolVar(&opts.weights, "weights", false, "Include per-feature weights")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runTransform(cmd *cobra.Command, path string, opts transformOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadModel(cmd.Context(), cfg, opts.model)
	if err != nil {
		return err
	}
	docs, err := corpus.LoadFile(path)
	if err != nil {
		return err
	}
	texts := corpus.Texts(docs)

	var scores []float64
	if opts.query != "" {
		scores = m.Score(opts.query, texts)
	} else {
		scores = m.Transform(texts)
	}

	results := make([]scoredDocument, len(docs))
	for i, d := range docs {
		results[i] = scoredDocument{ID: d.ID, Score: scores[i]}
	}
	if opts.weights {
		voc := m.Vocabulary()
		w := m.Weights(texts)
		for i := range results {
			cols, vals := w.Row(i)
			results[i].Weights = make(map[string]float64, len(cols))
			for j, c := range cols {
				term, _ := voc.Term(c)
				results[i].Weights[term] = vals[j]
			}
		}
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	out := output.New(cmd.OutOrStdout())
	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{r.ID, strconv.FormatFloat(r.Score, 'g', 6, 64)}
		if opts.weights {
			row = append(row, formatWeights(r.Weights))
		}
		rows[i] = row
	}
	headers := []string{"ID", "SCORE"}
	if opts.weights {
		headers = append(headers, "WEIGHTS")
	}
	out.Table(headers, rows)
	return nil
}

// formatWeights renders weights as "term=w term=w" in term order.
func formatWeights(weights map[string]float64) string {
	terms := make([]string, 0, len(weights))
	for t := range weights {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	s := ""
	for i, t := range terms {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.4g", t, weights[t])
	}
	return s
}
