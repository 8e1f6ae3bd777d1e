// Package cmd provides the CLI commands for bm25vec.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/bm25vec/internal/bm25"
	"github.com/Aman-CERP/bm25vec/internal/config"
	vecerrors "github.com/Aman-CERP/bm25vec/internal/errors"
	"github.com/Aman-CERP/bm25vec/internal/logging"
	"github.com/Aman-CERP/bm25vec/internal/profiling"
	"github.com/Aman-CERP/bm25vec/internal/store"
	"github.com/Aman-CERP/bm25vec/pkg/version"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	debug      bool
	configFile string
	storeDir   string
	backend    string
	profile    profiling.Options
}

var (
	globals        globalOptions
	loggingCleanup func()
	profiler       *profiling.Session
)

// NewRootCmd creates the root command for the bm25vec CLI.
func NewRootCmd() *cobra.Command {
	globals = globalOptions{}

	cmd := &cobra.Command{
		Use:   "bm25vec",
		Short: "BM25 term-frequency vectorizer and ranker",
		Long: `bm25vec learns a vocabulary and BM25 statistics from a corpus, saves the
fitted model, and scores or ranks documents against it.

Corpus files are plain text (one document per line) or JSON Lines
({"id": "...", "text": "..."}) when the extension is .jsonl or .ndjson.

Configuration precedence (lowest to highest):
  1. Defaults
  2. User config (~/.config/bm25vec/config.yaml)
  3. Project config (.bm25vec.yaml) or --config
  4. Environment variables (BM25VEC_*)`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("bm25vec version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&globals.debug, "debug", false, "Enable debug logging (file and stderr)")
	cmd.PersistentFlags().StringVar(&globals.configFile, "config", "", "Config file to use instead of ./.bm25vec.yaml")
	cmd.PersistentFlags().StringVar(&globals.storeDir, "store-dir", "", "Model state directory (overrides storage.path)")
	cmd.PersistentFlags().StringVar(&globals.backend, "backend", "", "State backend: json, sqlite (overrides storage.backend)")

	cmd.PersistentFlags().StringVar(&globals.profile.CPUProfile, "cpuprofile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&globals.profile.HeapProfile, "memprofile", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&globals.profile.Trace, "trace", "", "Write an execution trace to this file")

	cmd.PersistentPreRunE = startCommand
	cmd.PersistentPostRunE = stopCommand

	cmd.AddCommand(newFitCmd())
	cmd.AddCommand(newTransformCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVocabCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := NewRootCmd().Execute()
	if stopErr := stopCommand(nil, nil); err == nil {
		err = stopErr
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, vecerrors.FormatForUser(err, globals.debug))
	}
	return err
}

func startCommand(cmd *cobra.Command, args []string) error {
	if err := startLogging(cmd, args); err != nil {
		return err
	}
	if !globals.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(globals.profile)
	if err != nil {
		return err
	}
	profiler = s
	return nil
}

// stopCommand flushes profiles and closes the log. Safe to call twice.
func stopCommand(cmd *cobra.Command, args []string) error {
	var err error
	if profiler != nil {
		err = profiler.Stop()
		profiler = nil
	}
	_ = stopLogging(cmd, args)
	return err
}

// startLogging points slog at the rotating log file. A broken config only
// affects the log settings here; the command itself reports it.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
		if cfg.Logging.File != "" {
			logCfg.FilePath = cfg.Logging.File
		}
	}
	if globals.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		if globals.debug {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		// Logging is best effort outside --debug.
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug_logging_enabled",
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig resolves the effective configuration including the
// persistent flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globals.configFile != "" {
		cfg, err = config.LoadPath(globals.configFile)
	} else {
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", wdErr)
		}
		cfg, err = config.Load(cwd)
	}
	if err != nil {
		return nil, err
	}

	if globals.storeDir != "" {
		cfg.Storage.Path = globals.storeDir
	}
	if globals.backend != "" {
		if _, err := store.ParseBackend(globals.backend); err != nil {
			return nil, vecerrors.ConfigError("invalid --backend", err)
		}
		cfg.Storage.Backend = globals.backend
	}
	return cfg, nil
}

// openStore opens the configured state store.
func openStore(cfg *config.Config) (store.StateStore, error) {
	s, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	slog.Debug("store_opened",
		slog.String("backend", cfg.Storage.Backend),
		slog.String("path", cfg.Storage.Path))
	return s, nil
}

// loadModel restores the named model from the configured store.
func loadModel(ctx context.Context, cfg *config.Config, name string) (*bm25.Model, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	snap, err := s.Load(ctx, name)
	if err != nil {
		var ve *vecerrors.VecError
		if errors.As(err, &ve) && ve.Code == vecerrors.ErrCodeModelNotFound {
			return nil, ve.WithSuggestion(fmt.Sprintf("Run 'bm25vec fit <corpus> --model %s' first", name))
		}
		return nil, err
	}
	return bm25.FromSnapshot(snap, nil)
}
