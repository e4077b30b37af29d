// Package app assembles adapters and use cases from configuration. It is
// shared by the CLI and the API service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/titledate-verifier/internal/adapter/chromedp_browser"
	"github.com/user/titledate-verifier/internal/adapter/memory"
	redis_adapter "github.com/user/titledate-verifier/internal/adapter/redis"
	"github.com/user/titledate-verifier/internal/adapter/rod_browser"
	"github.com/user/titledate-verifier/internal/adapter/spreadsheet"
	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/proxy"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/internal/usecase"
	"github.com/user/titledate-verifier/pkg/config"
)

var errRedisRequired = errors.New("cache.backend redis needs a redis client")

// NewBrowser starts the configured driver with the next user agent and proxy
// from profiles.
func NewBrowser(ctx context.Context, cfg config.BrowserConfig, profiles *proxy.Manager, logger *zap.Logger) (repository.BrowserRepository, error) {
	profile := profiles.Next()
	logger.Info("Starting browser",
		zap.String("driver", cfg.Driver),
		zap.Bool("headless", cfg.Headless),
		zap.String("proxy", profile.Proxy),
	)

	switch cfg.Driver {
	case "rod":
		return rod_browser.NewRodBrowser(ctx, rod_browser.Options{
			Headless:     cfg.Headless,
			ExecPath:     cfg.ExecPath,
			Profile:      profile,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
		}, logger)
	case "chromedp", "":
		return chromedp_browser.NewChromedpBrowser(ctx, chromedp_browser.Options{
			Headless:     cfg.Headless,
			ExecPath:     cfg.ExecPath,
			Profile:      profile,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
		}, logger)
	}
	return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
}

// Timing maps the configured pauses onto the use case settings.
func Timing(cfg *config.Config) usecase.Timing {
	t := cfg.Timing
	return usecase.Timing{
		PageLoad:         t.PageLoad,
		AfterYear:        t.AfterYear,
		AfterTrigger:     t.AfterTrigger,
		AfterDay:         t.AfterDay,
		AfterMonthExpand: t.AfterMonthExpand,
		AfterConfirm:     t.AfterConfirm,
		PageSettle:       t.PageSettle,
		AfterNextPage:    t.AfterNextPage,
		AfterSearch:      t.AfterSearch,
		Resolve:          cfg.Browser.ResolveTimeout,
	}
}

func VerifierConfig(cfg *config.Config) usecase.VerifierConfig {
	return usecase.VerifierConfig{
		BaseURL:            cfg.Search.BaseURL,
		PageCeiling:        cfg.Search.PageCeiling,
		CandidateCap:       cfg.Search.CandidateCap,
		TitleFirst:         cfg.Search.TitleFirst,
		NavigationAttempts: cfg.Browser.NavigationAttempts,
		NavigationDelay:    cfg.Browser.NavigationDelay,
		NavigationTimeout:  cfg.Browser.NavigationTimeout,
		CacheTTL:           cfg.Cache.VerdictTTL,
		Timing:             Timing(cfg),
	}
}

// NewLimiter paces page loads. Zero means unlimited and yields nil.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewVerdictCache returns the configured verdict memo, or nil for "none".
// rdb is only used by the redis backend.
func NewVerdictCache(cfg config.CacheConfig, rdb *redis.Client) (repository.VerdictCacheRepository, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "redis":
		if rdb == nil {
			return nil, errRedisRequired
		}
		return redis_adapter.NewVerdictCacheRepo(rdb), nil
	case "memory", "":
		return memory.NewVerdictCacheRepo(cfg.VerdictTTL), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewDatasetReader(cfg config.DatasetConfig) *spreadsheet.Reader {
	return spreadsheet.NewReader(spreadsheet.Columns{
		Date:  cfg.DateColumn,
		Title: cfg.TitleColumn,
		Sheet: cfg.Sheet,
	})
}

// NewVerifier wires the verification use case over an open browser.
func NewVerifier(cfg *config.Config, browser repository.BrowserRepository, cache repository.VerdictCacheRepository, logger *zap.Logger) (usecase.Verifier, error) {
	catalog, err := locator.Load(cfg.Locators.File)
	if err != nil {
		return nil, err
	}
	return usecase.NewVerifier(browser, catalog, cache, NewLimiter(cfg.Browser.RequestsPerSecond), VerifierConfig(cfg), logger), nil
}
