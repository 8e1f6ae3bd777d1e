package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/bm25vec/internal/config"
	"github.com/Aman-CERP/bm25vec/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and create bm25vec configuration files.

Configuration precedence (lowest to highest):
  1. Defaults
  2. User config (~/.config/bm25vec/config.yaml)
  3. Project config (.bm25vec.yaml) or --config
  4. Environment variables (BM25VEC_*)`,
		Example: `  # Create user config with the defaults
  bm25vec config init

  # Show effective configuration (merged from all sources)
  bm25vec config show

  # Print user config file path
  bm25vec config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Write the default configuration to ~/.config/bm25vec/config.yaml
(or $XDG_CONFIG_HOME/bm25vec/config.yaml if XDG_CONFIG_HOME is set).

With --force an existing file is backed up before it is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  # Show merged configuration
  bm25vec config show

  # Show as JSON
  bm25vec config show --json

  # Show only what the user config sets on top of the defaults
  bm25vec config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.GetUserConfigPath()

	var backupPath string
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("", "Location: %s", path)
			out.Status("", "Use --force to replace it with the defaults (a backup is kept)")
			return nil
		}
		backupPath, err = config.BackupConfig(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	out.Success("Created user configuration")
	out.Statusf("", "Location: %s", path)
	if backupPath != "" {
		out.Statusf("", "Backup: %s", backupPath)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	cfg, err := configFromSource(source)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// configFromSource returns the defaults overlaid with a single source, or
// the fully merged configuration.
func configFromSource(source string) (*config.Config, error) {
	switch source {
	case "merged", "":
		return loadConfig()
	case "defaults":
		return config.NewConfig(), nil
	case "user":
		cfg := config.NewConfig()
		if err := cfg.LoadFile(config.GetUserConfigPath()); err != nil {
			return nil, err
		}
		return cfg, nil
	case "project":
		path := globals.configFile
		if path == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = config.ProjectConfigPath(cwd)
		}
		cfg := config.NewConfig()
		if path != "" {
			if err := cfg.LoadFile(path); err != nil {
				return nil, err
			}
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}
}
