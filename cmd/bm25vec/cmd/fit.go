package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	"github.com/Aman-CERP/bm25vec/internal/config"
	"github.com/Aman-CERP/bm25vec/internal/corpus"
	"github.com/Aman-CERP/bm25vec/internal/output"
	"github.com/Aman-CERP/bm25vec/internal/profiling"
	"github.com/Aman-CERP/bm25vec/internal/store"
	"github.com/Aman-CERP/bm25vec/internal/watcher"
)

// fitOptions holds CLI flags for fit.
type fitOptions struct {
	model    string
	watch    bool
	debounce time.Duration
	poll     bool
	format   string
}

// fitSummary is the JSON form of a fit result.
type fitSummary struct {
	Model        string  `json:"model"`
	Documents    int     `json:"documents"`
	Features     int     `json:"features"`
	AvgDocLength float64 `json:"avg_doc_length"`
	MaxScore     float64 `json:"max_score"`
	IDF          string  `json:"idf"`
	Backend      string  `json:"backend"`
	Path         string  `json:"path"`
}

func newFitCmd() *cobra.Command {
	var opts fitOptions

	cmd := &cobra.Command{
		Use:   "fit <corpus>",
		Short: "Learn a vocabulary and BM25 statistics from a corpus",
		Long: `Fit builds the vocabulary of a corpus (tokenize, n-grams, stop words,
document-frequency pruning), computes idf weights and the average document
length, and saves the frozen model to the state store.

With --watch the corpus file is watched and the model is refitted from
scratch and re-saved after every change.`,
		Example: `  bm25vec fit docs.txt
  bm25vec fit docs.jsonl --model articles
  bm25vec fit docs.txt --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", store.DefaultModelName, "Name to save the model under")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Refit whenever the corpus file changes")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultOptions().DebounceWindow, "Quiet period before refitting in --watch mode")
	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll the corpus file instead of using filesystem events")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runFit(cmd *cobra.Command, path string, opts fitOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vopts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	if err := store.ValidateModelName(opts.model); err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	summary, err := fitAndSave(ctx, cfg, vopts, st, path, opts.model)
	if err != nil {
		return err
	}
	if err := printFitSummary(cmd, opts.format, summary); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndRefit(ctx, cmd, cfg, vopts, st, path, opts)
}

// fitAndSave loads the corpus, fits a fresh model and saves its snapshot.
func fitAndSave(ctx context.Context, cfg *config.Config, vopts bm25.Options, st store.StateStore, path, name string) (*fitSummary, error) {
	docs, err := corpus.LoadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := bm25.New(vopts)
	if err != nil {
		return nil, err
	}
	m := v.Fit(corpus.Texts(docs))
	if err := st.Save(ctx, name, m.Snapshot()); err != nil {
		return nil, err
	}
	slog.Debug("fit_complete",
		slog.String("model", name),
		slog.Int("documents", m.NumDocs()),
		slog.Int("features", m.Vocabulary().Len()),
		slog.String("heap_in_use", profiling.FormatBytes(profiling.HeapInUse())))
	return &fitSummary{
		Model:        name,
		Documents:    m.NumDocs(),
		Features:     m.Vocabulary().Len(),
		AvgDocLength: m.AvgDocLength(),
		MaxScore:     m.MaxScore(),
		IDF:          m.IDFName(),
		Backend:      cfg.Storage.Backend,
		Path:         store.StatePath(cfg.Storage.Path, store.Backend(cfg.Storage.Backend)),
	}, nil
}

// watchAndRefit refits the model after each debounced change to path
// until ctx is done. A failed refit is reported and the previous model
// stays in the store.
func watchAndRefit(ctx context.Context, cmd *cobra.Command, cfg *config.Config, vopts bm25.Options,
	st store.StateStore, path string, opts fitOptions) error {
	out := output.New(cmd.ErrOrStderr())

	wopts := watcher.DefaultOptions()
	wopts.DebounceWindow = opts.debounce
	wopts.ForcePolling = opts.poll
	w, err := watcher.NewFileWatcher([]string{path}, wopts)
	if err != nil {
		return err
	}
	mode := "fsnotify"
	if w.Polling() {
		mode = "polling"
	}
	out.Statusf("👀", "Watching %s (%s); press Ctrl+C to stop", path, mode)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Start(gctx)
	})
	g.Go(func() error {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				slog.Warn("watch_error", slog.String("error", err.Error()))
				out.Warningf("watch error: %v", err)
			case batch, ok := <-w.Events():
				if !ok {
					return nil
				}
				if len(batch) == 0 {
					continue
				}
				if batch[len(batch)-1].Operation == watcher.OpDelete {
					out.Warningf("%s was removed; keeping the current model", path)
					continue
				}
				summary, err := fitAndSave(gctx, cfg, vopts, st, path, opts.model)
				if err != nil {
					slog.Warn("refit_failed", slog.String("error", err.Error()))
					out.Errorf("refit failed: %v", err)
					continue
				}
				slog.Info("refit_complete",
					slog.String("model", summary.Model),
					slog.Int("documents", summary.Documents),
					slog.Int("features", summary.Features))
				if err := printFitSummary(cmd, opts.format, summary); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func printFitSummary(cmd *cobra.Command, format string, s *fitSummary) error {
	if format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
	}
	out := output.New(cmd.OutOrStdout())
	out.Successf("Fitted model %q", s.Model)
	out.KeyValue("documents", s.Documents, 15)
	out.KeyValue("features", s.Features, 15)
	out.KeyValue("avg doc length", fmt.Sprintf("%.4g", s.AvgDocLength), 15)
	out.KeyValue("max score", fmt.Sprintf("%.4g", s.MaxScore), 15)
	out.KeyValue("idf", s.IDF, 15)
	out.KeyValue("saved to", fmt.Sprintf("%s (%s)", s.Path, s.Backend), 15)
	return nil
}

// checkFormat validates an --format value.
func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (use: text, json)", format)
	}
}
