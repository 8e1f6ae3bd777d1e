package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	"github.com/Aman-CERP/bm25vec/internal/output"
	"github.com/Aman-CERP/bm25vec/internal/store"
)

// vocabOptions holds CLI flags for vocab.
type vocabOptions struct {
	model  string
	sortBy string
	limit  int
	format string
}

// featureInfo describes one vocabulary column.
type featureInfo struct {
	Index   int     `json:"index"`
	Term    string  `json:"term"`
	DocFreq float64 `json:"doc_freq"`
	IDF     float64 `json:"idf"`
}

func newVocabCmd() *cobra.Command {
	var opts vocabOptions

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List the features of a fitted model",
		Long: `Vocab prints the model's features with their column index, document
frequency and idf weight, followed by the model's fitted statistics.`,
		Example: `  bm25vec vocab
  bm25vec vocab --sort idf -n 20
  bm25vec vocab --model articles --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVocab(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", store.DefaultModelName, "Model to inspect")
	cmd.Flags().StringVarP(&opts.sortBy, "sort", "s", "index", "Sort by: index, term, df, idf")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of features (0 = all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runVocab(cmd *cobra.Command, opts vocabOptions) error {
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

	features, err := modelFeatures(m, opts.sortBy)
	if err != nil {
		return err
	}
	if opts.limit > 0 && len(features) > opts.limit {
		features = features[:opts.limit]
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(features)
	}

	out := output.New(cmd.OutOrStdout())
	out.Header(fmt.Sprintf("Model %q", opts.model))
	out.KeyValue("documents", m.NumDocs(), 15)
	out.KeyValue("features", m.Vocabulary().Len(), 15)
	out.KeyValue("fixed vocab", m.Vocabulary().Fixed(), 15)
	out.KeyValue("avg doc length", fmt.Sprintf("%.4g", m.AvgDocLength()), 15)
	out.KeyValue("k1 / b", fmt.Sprintf("%g / %g", m.K1(), m.B()), 15)
	out.KeyValue("idf", m.IDFName(), 15)
	out.KeyValue("normalized", m.Normalized(), 15)
	out.Newline()

	rows := make([][]string, len(features))
	for i, f := range features {
		rows[i] = []string{
			strconv.Itoa(f.Index),
			f.Term,
			strconv.FormatFloat(f.DocFreq, 'g', 6, 64),
			strconv.FormatFloat(f.IDF, 'f', 4, 64),
		}
	}
	out.Table([]string{"INDEX", "TERM", "DF", "IDF"}, rows)
	return nil
}

// modelFeatures lists the model's features in the requested order. Ties
// are broken by column index.
func modelFeatures(m *bm25.Model, sortBy string) ([]featureInfo, error) {
	voc := m.Vocabulary()
	idf := m.IDFWeights()
	df := m.DocumentFrequency()

	features := make([]featureInfo, 0, voc.Len())
	for i := 0; i < voc.Width(); i++ {
		term, ok := voc.Term(i)
		if !ok {
			continue
		}
		features = append(features, featureInfo{Index: i, Term: term, DocFreq: df[i], IDF: idf[i]})
	}

	var less func(a, b featureInfo) bool
	switch sortBy {
	case "index", "":
		return features, nil
	case "term":
		less = func(a, b featureInfo) bool { return a.Term < b.Term }
	case "df":
		less = func(a, b featureInfo) bool { return a.DocFreq > b.DocFreq }
	case "idf":
		less = func(a, b featureInfo) bool { return a.IDF > b.IDF }
	default:
		return nil, fmt.Errorf("invalid sort: %s (use: index, term, df, idf)", sortBy)
	}
	sort.SliceStable(features, func(i, j int) bool { return less(features[i], features[j]) })
	return features, nil
}
