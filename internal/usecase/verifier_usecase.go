package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/metrics"
	"github.com/user/titledate-verifier/pkg/retry"
	"github.com/user/titledate-verifier/pkg/textnorm"
	"github.com/user/titledate-verifier/pkg/utils"
)

// Verification states, reported through the step callback.
const (
	StateOpeningSearchPage = "opening search page"
	StateSelectingDate     = "selecting date"
	StateSearchingTitle    = "searching title"
	StateScanning          = "scanning results"
)

// Verifier defines the interface for checking one (date, title) pair.
type Verifier interface {
	// Verify always returns a verdict. onStep, when non-nil, is called at
	// every state change.
	Verify(ctx context.Context, req entity.VerificationRequest, onStep func(step string)) entity.Verdict
}

// VerifierConfig tunes the verification workflow.
type VerifierConfig struct {
	BaseURL            string
	PageCeiling        int
	CandidateCap       int
	TitleFirst         bool
	NavigationAttempts int
	NavigationDelay    time.Duration
	// NavigationTimeout bounds a single page load; zero leaves it to ctx.
	NavigationTimeout time.Duration
	CacheTTL          time.Duration
	Timing            Timing
}

type verifierUseCase struct {
	cfg      VerifierConfig
	s        *session
	selector *DateSelector
	searcher *TitleSearcher
	walker   *PaginationWalker
	cache    repository.VerdictCacheRepository
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewVerifier creates the verification use case. cache and limiter may be nil.
func NewVerifier(
	browser repository.BrowserRepository,
	catalog *locator.Catalog,
	cache repository.VerdictCacheRepository,
	limiter *rate.Limiter,
	cfg VerifierConfig,
	logger *zap.Logger,
) Verifier {
	if cfg.PageCeiling <= 0 {
		cfg.PageCeiling = DefaultPageCeiling
	}
	if cfg.NavigationAttempts <= 0 {
		cfg.NavigationAttempts = 1
	}
	scanner := NewPageScanner(browser, catalog, cfg.Timing, cfg.CandidateCap, logger)
	return &verifierUseCase{
		cfg:      cfg,
		s:        &session{browser: browser, catalog: catalog, timing: cfg.Timing, logger: logger},
		selector: NewDateSelector(browser, catalog, cfg.Timing, logger),
		searcher: NewTitleSearcher(browser, catalog, cfg.Timing, logger),
		walker:   NewPaginationWalker(browser, catalog, cfg.Timing, scanner, logger),
		cache:    cache,
		limiter:  limiter,
		logger:   logger,
	}
}

func (uc *verifierUseCase) Verify(ctx context.Context, req entity.VerificationRequest, onStep func(string)) entity.Verdict {
	start := time.Now()
	log := uc.logger.With(zap.Int("row", req.RowNumber), zap.String("date", req.DateText()))

	target := textnorm.Normalize(req.Title)
	key := utils.HashRequest(req.DateText(), target)

	v, hit := uc.lookup(ctx, key, log)
	if !hit {
		v = uc.run(ctx, req.PublicationDate, target, log, func(state string) {
			log.Info("verification state", zap.String("state", state))
			if onStep != nil {
				onStep(state)
			}
		})
		// A verdict reached while ctx was dying may rest on swallowed errors.
		if v.IsFinal() && ctx.Err() == nil {
			uc.store(ctx, key, v, log)
		}
	}

	metrics.VerdictsTotal.WithLabelValues(v.Kind.String(), reasonLabel(v)).Inc()
	metrics.VerificationDuration.WithLabelValues(v.Kind.String()).Observe(time.Since(start).Seconds())
	log.Info("verdict", zap.Stringer("verdict", v), zap.Bool("cached", v.Cached), zap.Duration("took", time.Since(start)))
	return v
}

func (uc *verifierUseCase) run(ctx context.Context, date time.Time, target string, log *zap.Logger, step func(string)) entity.Verdict {
	if target == "" {
		return entity.Inconclusive("empty title")
	}

	step(StateOpeningSearchPage)
	if err := uc.open(ctx, log); err != nil {
		log.Warn("search page unreachable", zap.Error(err))
		return inconclusive(ctx, entity.ReasonPageUnreachable)
	}
	uc.s.settle(ctx, uc.cfg.Timing.PageLoad)

	step(StateSelectingDate)
	if err := uc.selector.SelectDate(ctx, date); err != nil {
		log.Warn("date selection failed", zap.Error(err))
		return inconclusive(ctx, entity.ReasonDateSelectionFailed)
	}

	if uc.cfg.TitleFirst {
		step(StateSearchingTitle)
		if err := uc.searcher.Search(ctx, target); err != nil {
			log.Warn("title search failed", zap.Error(err))
			return inconclusive(ctx, entity.ReasonTitleSearchFailed)
		}
	}

	step(StateScanning)
	res, err := uc.walker.FindAcrossPages(ctx, target, uc.cfg.PageCeiling)
	metrics.PagesScanned.Observe(float64(res.Pages))
	if err != nil {
		log.Warn("pagination failed", zap.Error(err), zap.Int("pages", res.Pages))
		return inconclusive(ctx, entity.ReasonPaginationFailed)
	}
	if res.Matched {
		return entity.Matched(res.Pass, res.Page)
	}
	v := entity.NotMatched(res.Pages)
	v.Reason = res.StopReason
	return v
}

// open navigates to the search page, retrying dropped connections.
func (uc *verifierUseCase) open(ctx context.Context, log *zap.Logger) error {
	if uc.limiter != nil {
		if err := uc.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	policy := retry.Policy{
		Attempts:  uc.cfg.NavigationAttempts,
		Delay:     uc.cfg.NavigationDelay,
		Retryable: retry.IsTransientNavigation,
		OnRetry: func(attempt int, err error) {
			log.Warn("navigation failed, retrying", zap.Int("attempt", attempt), zap.Int("of", uc.cfg.NavigationAttempts), zap.Error(err))
		},
	}
	return policy.Do(ctx, func(ctx context.Context) error {
		if uc.cfg.NavigationTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, uc.cfg.NavigationTimeout)
			defer cancel()
		}
		return uc.s.browser.Navigate(ctx, uc.cfg.BaseURL)
	})
}

func (uc *verifierUseCase) lookup(ctx context.Context, key string, log *zap.Logger) (entity.Verdict, bool) {
	if uc.cache == nil {
		return entity.Verdict{}, false
	}
	v, ok, err := uc.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.VerdictCacheLookups.WithLabelValues("error").Inc()
		log.Warn("verdict cache lookup failed", zap.Error(err))
		return entity.Verdict{}, false
	case !ok || !v.IsFinal():
		metrics.VerdictCacheLookups.WithLabelValues("miss").Inc()
		return entity.Verdict{}, false
	}
	metrics.VerdictCacheLookups.WithLabelValues("hit").Inc()
	v.Cached = true
	return v, true
}

func (uc *verifierUseCase) store(ctx context.Context, key string, v entity.Verdict, log *zap.Logger) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Put(ctx, key, v, uc.cfg.CacheTTL); err != nil {
		log.Warn("verdict cache store failed", zap.Error(err))
	}
}

// inconclusive reports a cancelled context in place of the step failure it caused.
func inconclusive(ctx context.Context, reason string) entity.Verdict {
	if errors.Is(ctx.Err(), context.Canceled) {
		return entity.Inconclusive(entity.ReasonCancelled)
	}
	return entity.Inconclusive(reason)
}

// reasonLabel keeps metric cardinality bounded: free-form reasons collapse
// to their prefix.
func reasonLabel(v entity.Verdict) string {
	if v.Kind != entity.VerdictInconclusive {
		return ""
	}
	for _, r := range []string{
		entity.ReasonPageUnreachable, entity.ReasonDateSelectionFailed, entity.ReasonTitleSearchFailed,
		entity.ReasonPaginationFailed, entity.ReasonCancelled, entity.ReasonUnexpectedFailure,
	} {
		if strings.HasPrefix(v.Reason, r) {
			return r
		}
	}
	return "other"
}
