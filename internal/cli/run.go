package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/app"
	"github.com/user/titledate-verifier/internal/delivery/console"
	"github.com/user/titledate-verifier/internal/delivery/tui"
	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/proxy"
	"github.com/user/titledate-verifier/internal/usecase"
	"github.com/user/titledate-verifier/pkg/config"
	"github.com/user/titledate-verifier/pkg/logger"
)

// tuiLogFile receives logs while the terminal is taken by the progress UI.
const tuiLogFile = "verifier.log"

var errCancelled = errors.New("batch cancelled before every row was verified")

type runOptions struct {
	tui      bool
	jsonPath string
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Verify every row of a spreadsheet",
		Long: `Verify every row of an .xlsx, .xlsm or .csv file. The file needs a
publication date column and a title column (发布时间 and 标题 unless configured
otherwise). Rows are verified one after another in a single browser session.

Example:
  verifier run papers.xlsx
  verifier run papers.xlsx --tui --json report.json
  verifier run papers.csv --ceiling 20 --headless`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, ro, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolVar(&ro.tui, "tui", false, "show an interactive progress screen")
	f.StringVar(&ro.jsonPath, "json", "", "write the full report as JSON to this file")
	f.Int("ceiling", 0, "maximum result pages scanned per row (search.page_ceiling)")
	f.Bool("headless", false, "run the browser without a window (browser.headless)")
	f.String("driver", "", "browser driver, chromedp or rod (browser.driver)")
	f.Bool("title-first", false, "search by title before filtering by date (search.title_first)")
	return cmd
}

// flagKeys maps run flags onto configuration keys.
var flagKeys = map[string]string{
	"ceiling":     "search.page_ceiling",
	"headless":    "browser.headless",
	"driver":      "browser.driver",
	"title-first": "search.title_first",
}

func runVerify(cmd *cobra.Command, opts *rootOptions, ro *runOptions, file string) error {
	for name, key := range flagKeys {
		if err := opts.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	cfg, err := config.FromViper(opts.v)
	if err != nil {
		return err
	}

	logOpts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	if ro.tui && logOpts.File == "" {
		logOpts.File = tuiLogFile
	}
	log, closeLog, err := logger.New(logOpts)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	rows, err := app.NewDatasetReader(cfg.Dataset).ReadRows(ctx, file)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}

	var rdb *redis.Client
	if cfg.Cache.Backend == "redis" {
		rdb = app.NewRedisClient(cfg.Redis)
		defer rdb.Close()
	}
	cache, err := app.NewVerdictCache(cfg.Cache, rdb)
	if err != nil {
		return err
	}

	profiles := proxy.NewManager(cfg.Browser.UserAgents, cfg.Browser.Proxies)
	browser, err := opts.newBrowser(ctx, cfg.Browser, profiles, log)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	verifier, err := app.NewVerifier(cfg, browser, cache, log)
	if err != nil {
		return err
	}
	runner := usecase.NewBatchRunner(verifier, log)

	report := &entity.BatchReport{
		ID:        uuid.NewString(),
		Source:    filepath.Base(file),
		Path:      file,
		Status:    entity.BatchQueued,
		CreatedAt: time.Now(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan entity.ProgressEvent, 16)
	done := make(chan *entity.BatchReport, 1)
	go func() {
		done <- runner.Run(runCtx, report, rows, events)
	}()

	out := cmd.OutOrStdout()
	if ro.tui {
		if _, err := tui.Run(report.Source, events, cancel, tea.WithAltScreen()); err != nil {
			log.Error("Progress screen failed", zap.Error(err))
		}
	} else {
		console.NewPrinter(out, opts.verbose).Drain(events)
	}
	final := <-done

	console.PrintSummary(out, final)
	if ro.jsonPath != "" {
		if err := console.WriteJSON(ro.jsonPath, final); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", ro.jsonPath)
	}
	if final.Status == entity.BatchCancelled {
		return errCancelled
	}
	return nil
}
