package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
)

// DefaultPageCeiling bounds the pages scanned for one request.
const DefaultPageCeiling = 50

// Reasons a walk ended without a match.
const (
	StopPastTotal     = "indicator past last page"
	StopLastPage      = "last page reached"
	StopCeiling       = "page ceiling reached"
	StopNoNextControl = "no enabled next-page control"
)

// WalkResult summarizes a walk over the result pages.
type WalkResult struct {
	Matched bool
	Pass    string
	// Page is the page of the match.
	Page int
	// Pages is the number of pages scanned.
	Pages      int
	StopReason string
}

// PaginationWalker scans result pages one after another until the title is
// found or the pages run out.
type PaginationWalker struct {
	s       *session
	scanner *PageScanner
}

// NewPaginationWalker creates a PaginationWalker that scans each page with scanner.
func NewPaginationWalker(browser repository.BrowserRepository, catalog *locator.Catalog, timing Timing, scanner *PageScanner, logger *zap.Logger) *PaginationWalker {
	return &PaginationWalker{
		s:       &session{browser: browser, catalog: catalog, timing: timing, logger: logger},
		scanner: scanner,
	}
}

// FindAcrossPages scans at most ceiling pages. A next-page control that was
// found but could not be clicked is returned as an error wrapping
// ErrPagination, since the remaining pages were never seen. So is a failed
// next-page lookup that was not a plain absence of the control, such as a
// cancelled ctx.
func (w *PaginationWalker) FindAcrossPages(ctx context.Context, target string, ceiling int) (WalkResult, error) {
	cursor := entity.NewPageCursor(ceiling)
	var res WalkResult
	for {
		w.s.settle(ctx, w.s.timing.PageSettle)
		if err := ctx.Err(); err != nil {
			return res, err
		}

		current, total, ok := w.readIndicator(ctx)
		if ok {
			cursor.ObserveTotal(total)
			w.s.logger.Debug("page indicator", zap.Int("current", current), zap.Int("total", total), zap.Int("cursor", cursor.Current()))
			if current > total {
				res.StopReason = StopPastTotal
				return res, nil
			}
		}

		out := w.scanner.ScanCurrentPage(ctx, target)
		res.Pages = cursor.Current()
		if out.Matched {
			res.Matched = true
			res.Pass = out.Pass
			res.Page = cursor.Current()
			return res, nil
		}

		if ok && current >= total {
			res.StopReason = StopLastPage
			return res, nil
		}
		if cursor.AtCeiling() {
			res.StopReason = StopCeiling
			return res, nil
		}

		next, err := w.s.resolveNow(ctx, w.s.catalog.Chain(locator.RoleNextPage, nil).Filter("enabled", enabled))
		if err != nil {
			var exhausted *locator.ExhaustedError
			ctxErr := ctx.Err()
			if ctxErr != nil && !errors.Is(err, ctxErr) {
				err = errors.Join(err, ctxErr)
			}
			if ctxErr != nil || !errors.As(err, &exhausted) {
				return res, fmt.Errorf("%w: looking for next page after page %d: %w", ErrPagination, cursor.Current(), err)
			}
			w.s.logger.Debug("no next page", zap.Error(err))
			res.StopReason = StopNoNextControl
			return res, nil
		}
		if err := w.s.browser.Click(ctx, next.Element); err != nil {
			return res, fmt.Errorf("%w: leaving page %d: %w", ErrPagination, cursor.Current(), err)
		}
		w.s.settle(ctx, w.s.timing.AfterNextPage)
		cursor.Advance()
	}
}

// readIndicator reads the "current / total" page indicator if the page has one.
func (w *PaginationWalker) readIndicator(ctx context.Context) (current, total int, ok bool) {
	current, err := w.readNumber(ctx, locator.RolePageCurrent)
	if err != nil {
		return 0, 0, false
	}
	total, err = w.readNumber(ctx, locator.RolePageTotal)
	if err != nil {
		return 0, 0, false
	}
	return current, total, true
}

func (w *PaginationWalker) readNumber(ctx context.Context, role locator.Role) (int, error) {
	m, err := w.s.resolveNow(ctx, w.s.catalog.Chain(role, nil))
	if err != nil {
		return 0, err
	}
	text, err := w.s.browser.Text(ctx, m.Element)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(text))
}

// enabled rejects controls marked disabled by class, attribute or ARIA state.
func enabled(ctx context.Context, b repository.BrowserRepository, el repository.Element) (bool, error) {
	class, _, err := b.Attribute(ctx, el, "class")
	if err != nil {
		return false, err
	}
	if strings.Contains(strings.ToLower(class), "disable") {
		return false, nil
	}
	if _, set, err := b.Attribute(ctx, el, "disabled"); err != nil || set {
		return false, err
	}
	aria, _, err := b.Attribute(ctx, el, "aria-disabled")
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(strings.TrimSpace(aria), "true"), nil
}
