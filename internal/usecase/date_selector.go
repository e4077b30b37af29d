package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/entity"
	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
)

// DateSelector applies the publication-date filter of the search page.
type DateSelector struct {
	s *session
}

// NewDateSelector creates a DateSelector driving browser with the roles in catalog.
func NewDateSelector(browser repository.BrowserRepository, catalog *locator.Catalog, timing Timing, logger *zap.Logger) *DateSelector {
	return &DateSelector{s: &session{browser: browser, catalog: catalog, timing: timing, logger: logger}}
}

// SelectDate picks the year, then the day cell, then confirms. A nil error
// means the filter is applied; failures wrap ErrDateSelection and leave the
// page as it was when the step gave up.
func (d *DateSelector) SelectDate(ctx context.Context, date time.Time) error {
	vars := locator.DateVars(date)
	day := date.Format(entity.DateLayout)

	if err := d.selectYear(ctx, vars); err != nil {
		return fmt.Errorf("%w: %s: year: %w", ErrDateSelection, day, err)
	}
	if err := d.selectDay(ctx, vars); err != nil {
		return fmt.Errorf("%w: %s: day: %w", ErrDateSelection, day, err)
	}
	d.confirm(ctx)
	d.s.logger.Debug("date selected", zap.String("date", day))
	return nil
}

// selectYear prefers the year dropdown. A dropdown without the wanted label
// falls through to the clickable time filter.
func (d *DateSelector) selectYear(ctx context.Context, vars locator.Vars) error {
	label := vars["year"] + "年"
	m, err := d.s.resolve(ctx, locator.RoleYearDropdown, vars)
	if err == nil {
		if err = d.s.browser.SelectOption(ctx, m.Element, label); err == nil {
			d.s.logger.Debug("year selected from dropdown", zap.String("label", label))
			d.s.settle(ctx, d.s.timing.AfterYear)
			return nil
		}
	}
	d.s.logger.Debug("year dropdown unusable, opening time filter", zap.Error(err))

	if err := d.s.clickRole(ctx, locator.RoleTimeFilterTrigger, vars); err != nil {
		d.s.diagnose(ctx, locator.RoleTimeFilterTrigger)
		return err
	}
	d.s.settle(ctx, d.s.timing.AfterTrigger)

	if err := d.s.clickRole(ctx, locator.RoleYearOption, vars); err != nil {
		d.s.diagnose(ctx, locator.RoleYearOption)
		return err
	}
	d.s.settle(ctx, d.s.timing.AfterYear)
	return nil
}

// selectDay clicks the day cell, expanding its month once when the cell is
// not rendered yet.
func (d *DateSelector) selectDay(ctx context.Context, vars locator.Vars) error {
	err := d.s.clickRole(ctx, locator.RoleDayCell, vars)
	if err == nil {
		d.s.settle(ctx, d.s.timing.AfterDay)
		return nil
	}
	d.s.logger.Debug("day cell not reachable, expanding month", zap.String("month", vars["month"]), zap.Error(err))

	if err := d.s.clickRole(ctx, locator.RoleMonthExpander, vars); err != nil {
		d.s.diagnose(ctx, locator.RoleMonthExpander)
		return err
	}
	d.s.settle(ctx, d.s.timing.AfterMonthExpand)

	if err := d.s.clickRole(ctx, locator.RoleDayCellInMonth, vars); err != nil {
		d.s.diagnose(ctx, locator.RoleDayCellInMonth)
		return err
	}
	d.s.settle(ctx, d.s.timing.AfterDay)
	return nil
}

// confirm clicks an optional confirmation control if one is present.
func (d *DateSelector) confirm(ctx context.Context) {
	m, err := d.s.resolveNow(ctx, d.s.catalog.Chain(locator.RoleConfirm, nil))
	if err != nil {
		d.s.logger.Debug("no confirm control, skipping")
		return
	}
	if err := d.s.browser.Click(ctx, m.Element); err != nil {
		d.s.logger.Debug("confirm click failed", zap.Error(err))
		return
	}
	d.s.settle(ctx, d.s.timing.AfterConfirm)
}
