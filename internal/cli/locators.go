package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/titledate-verifier/internal/locator"
)

func newLocatorsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locators",
		Short: "Print the effective locator catalog",
		Long: `Print every role with its ordered locate strategies, after applying the
overrides from locators.file. The output can be saved, edited and pointed to
by locators.file when the search page layout changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := locator.Load(opts.v.GetString("locators.file"))
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(catalog.Document())
			if err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
