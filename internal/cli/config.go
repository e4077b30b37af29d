package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/user/titledate-verifier/pkg/config"
)

const defaultConfigPath = "verifier.yaml"

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage verifier configuration",
		Long: `Manage verifier configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (VERIFIER_*, also read from .env)
3. Config file (./verifier.yaml or ~/.config/verifier/verifier.yaml)
4. Defaults`,
	}
	cmd.AddCommand(newConfigShowCommand(opts), newConfigInitCommand())
	return cmd
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(opts.v)
			if err != nil {
				return err
			}
			if used := opts.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", used)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults and environment)\n\n")
			}

			b, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with every default",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("error checking config file: %w", err)
			}

			v := viper.New()
			config.SetDefaults(v)
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}

			header := "# verifier configuration\n" +
				"# Every key can be overridden with VERIFIER_<SECTION>_<KEY>, e.g. VERIFIER_SEARCH_PAGE_CEILING.\n\n"
			if err := os.WriteFile(path, append([]byte(header), b...), 0o644); err != nil {
				return fmt.Errorf("error writing config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", defaultConfigPath, "where to write the file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
