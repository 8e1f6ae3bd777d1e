package cmd

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/bm25vec/internal/output"
	"github.com/Aman-CERP/bm25vec/internal/store"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage stored models",
		Long: `List or delete the fitted models kept in the state store
(--store-dir, storage.path in the config).`,
		Example: `  bm25vec models list
  bm25vec models delete articles`,
	}

	cmd.AddCommand(newModelsListCmd())
	cmd.AddCommand(newModelsDeleteCmd())

	return cmd
}

func newModelsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			models, err := s.List(cmd.Context())
			if err != nil {
				return err
			}

			if format == "json" {
				if models == nil {
					models = []store.ModelInfo{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}

			out := output.New(cmd.OutOrStdout())
			if len(models) == 0 {
				out.Muted("No models stored in " + cfg.Storage.Path)
				return nil
			}
			rows := make([][]string, len(models))
			for i, m := range models {
				rows[i] = []string{
					m.Name,
					strconv.Itoa(m.Features),
					strconv.Itoa(m.NumDocs),
					m.IDF,
					string(m.Backend),
					m.SavedAt.Local().Format("2006-01-02 15:04:05"),
				}
			}
			out.Table([]string{"NAME", "FEATURES", "DOCS", "IDF", "BACKEND", "SAVED"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newModelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete stored models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := store.ValidateModelName(name); err != nil {
					return err
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out := output.New(cmd.OutOrStdout())
			for _, name := range args {
				if err := s.Delete(cmd.Context(), name); err != nil {
					return err
				}
				out.Successf("Deleted model %q", name)
			}
			return nil
		},
	}
}
