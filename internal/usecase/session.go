package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/diagnostics"
	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
)

// Timing holds the settle pauses after UI actions and the per-strategy
// locator timeout.
type Timing struct {
	PageLoad         time.Duration
	AfterYear        time.Duration
	AfterTrigger     time.Duration
	AfterDay         time.Duration
	AfterMonthExpand time.Duration
	AfterConfirm     time.Duration
	PageSettle       time.Duration
	AfterNextPage    time.Duration
	AfterSearch      time.Duration
	Resolve          time.Duration
}

// DefaultTiming mirrors the pauses the search UI needs in practice.
func DefaultTiming() Timing {
	return Timing{
		PageLoad:         2 * time.Second,
		AfterYear:        time.Second,
		AfterTrigger:     2 * time.Second,
		AfterDay:         800 * time.Millisecond,
		AfterMonthExpand: 600 * time.Millisecond,
		AfterConfirm:     time.Second,
		PageSettle:       2 * time.Second,
		AfterNextPage:    3 * time.Second,
		AfterSearch:      3 * time.Second,
		Resolve:          10 * time.Second,
	}
}

// session bundles what every step needs to drive the shared browser.
type session struct {
	browser repository.BrowserRepository
	catalog *locator.Catalog
	timing  Timing
	logger  *zap.Logger
}

// resolve waits for the first strategy of role that finds an element.
func (s *session) resolve(ctx context.Context, role locator.Role, vars locator.Vars) (locator.Match, error) {
	m, err := s.catalog.Chain(role, vars).Resolve(ctx, s.browser, s.timing.Resolve)
	if err != nil {
		return m, err
	}
	s.logger.Debug("role resolved", zap.String("role", string(role)), zap.Stringer("strategy", m.Strategy))
	return m, nil
}

// resolveNow is resolve without waiting for elements to appear.
func (s *session) resolveNow(ctx context.Context, ch locator.Chain) (locator.Match, error) {
	els, m, err := ch.ResolveAll(ctx, s.browser, s.timing.Resolve)
	if err != nil {
		return m, err
	}
	m.Element = els[0]
	return m, nil
}

// clickRole resolves role and clicks the element. When the click fails the
// remaining strategies are tried.
func (s *session) clickRole(ctx context.Context, role locator.Role, vars locator.Vars) error {
	ch := s.catalog.Chain(role, vars)
	var lastErr error
	for len(ch.Strategies) > 0 {
		m, err := ch.Resolve(ctx, s.browser, s.timing.Resolve)
		if err != nil {
			if lastErr != nil {
				return fmt.Errorf("click %s: %w (last click error: %v)", role, err, lastErr)
			}
			return err
		}
		if lastErr = s.browser.Click(ctx, m.Element); lastErr == nil {
			s.logger.Debug("clicked", zap.String("role", string(role)), zap.Stringer("strategy", m.Strategy))
			return nil
		}
		s.logger.Debug("click failed, trying next strategy",
			zap.String("role", string(role)), zap.Stringer("strategy", m.Strategy), zap.Error(lastErr))
		ch = ch.From(m.Index + 1)
	}
	return fmt.Errorf("click %s: %w", role, lastErr)
}

// settle pauses for d. Cancellation is noticed by the next browser call.
func (s *session) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	_ = s.browser.Wait(ctx, d)
}

// diagnose logs a summary of the elements that look like candidates for an
// unresolved role.
func (s *session) diagnose(ctx context.Context, role locator.Role) {
	if !s.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	hint := s.catalog.Hint(role)
	if hint == "" {
		return
	}
	html, err := s.browser.HTML(ctx)
	if err != nil {
		s.logger.Debug("page snapshot unavailable", zap.String("role", string(role)), zap.Error(err))
		return
	}
	summaries, err := diagnostics.Summarize(html, hint, diagnostics.DefaultLimit)
	if err != nil {
		s.logger.Debug("page snapshot unreadable", zap.String("role", string(role)), zap.Error(err))
		return
	}
	s.logger.Debug("candidates for unresolved role",
		zap.String("role", string(role)),
		zap.String("hint", hint),
		zap.Strings("candidates", diagnostics.Lines(summaries)),
	)
}
