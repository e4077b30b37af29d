package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
)

// TitleSearcher narrows the filtered results by typing the title into the
// search box.
type TitleSearcher struct {
	s *session
}

func NewTitleSearcher(browser repository.BrowserRepository, catalog *locator.Catalog, timing Timing, logger *zap.Logger) *TitleSearcher {
	return &TitleSearcher{s: &session{browser: browser, catalog: catalog, timing: timing, logger: logger}}
}

// Search types title and triggers the search button, pressing Enter in the
// input when no button is present.
func (t *TitleSearcher) Search(ctx context.Context, title string) error {
	in, err := t.s.resolve(ctx, locator.RoleTitleInput, nil)
	if err != nil {
		t.s.diagnose(ctx, locator.RoleTitleInput)
		return fmt.Errorf("%w: %w", ErrTitleSearch, err)
	}
	if err := t.s.browser.Type(ctx, in.Element, title); err != nil {
		return fmt.Errorf("%w: type title: %w", ErrTitleSearch, err)
	}

	btn, err := t.s.resolveNow(ctx, t.s.catalog.Chain(locator.RoleSearchTrigger, nil))
	if err == nil {
		if err := t.s.browser.Click(ctx, btn.Element); err != nil {
			return fmt.Errorf("%w: click search: %w", ErrTitleSearch, err)
		}
	} else {
		t.s.logger.Debug("no search button, pressing Enter")
		if err := t.s.browser.Submit(ctx, in.Element); err != nil {
			return fmt.Errorf("%w: submit: %w", ErrTitleSearch, err)
		}
	}
	t.s.settle(ctx, t.s.timing.AfterSearch)
	return nil
}
