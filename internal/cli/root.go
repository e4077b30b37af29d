package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/app"
	"github.com/user/titledate-verifier/internal/proxy"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/config"
)

// BrowserFactory opens the browser session a run verifies rows with.
type BrowserFactory func(ctx context.Context, cfg config.BrowserConfig, profiles *proxy.Manager, logger *zap.Logger) (repository.BrowserRepository, error)

type rootOptions struct {
	cfgFile    string
	verbose    bool
	newBrowser BrowserFactory

	// v is loaded before any subcommand runs.
	v *viper.Viper
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree with the real browser drivers.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.NewBrowser)
}

func newRootCommand(newBrowser BrowserFactory) *cobra.Command {
	opts := &rootOptions{newBrowser: newBrowser}

	root := &cobra.Command{
		Use:   "verifier",
		Short: "Check spreadsheet rows against a date-filtered publication search",
		Long: `verifier reads rows with a publication date and a title from a spreadsheet
and, for every row, opens the publication search in a real browser, filters
it to that date and looks for the title in the result list.

Rows whose title cannot be found on any result page are reported as not
matched. Rows that could not be checked are reported as inconclusive.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.v = v
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: ./verifier.yaml or ~/.config/verifier/verifier.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print every step of each row")

	root.AddCommand(
		newRunCommand(opts),
		newConfigCommand(opts),
		newLocatorsCommand(opts),
		newVersionCommand(),
	)
	return root
}
