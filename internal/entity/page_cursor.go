package entity

// PageCursor tracks the walk over result pages for one verification.
// Current starts at 1, only grows, and never passes Ceiling.
type PageCursor struct {
	current  int
	total    int
	hasTotal bool
	ceiling  int
}

// NewPageCursor returns a cursor on page 1. A ceiling below 1 is treated as 1.
func NewPageCursor(ceiling int) *PageCursor {
	if ceiling < 1 {
		ceiling = 1
	}
	return &PageCursor{current: 1, ceiling: ceiling}
}

// Current returns the page being scanned.
func (c *PageCursor) Current() int { return c.current }

// Ceiling returns the configured maximum page.
func (c *PageCursor) Ceiling() int { return c.ceiling }

// Total returns the total page count reported by the UI, if one was read.
func (c *PageCursor) Total() (int, bool) { return c.total, c.hasTotal }

// ObserveTotal records the total page count read from the page indicator.
func (c *PageCursor) ObserveTotal(total int) {
	c.total = total
	c.hasTotal = true
}

// AtCeiling reports whether advancing would pass the ceiling.
func (c *PageCursor) AtCeiling() bool {
	return c.current >= c.ceiling
}

// Advance moves to the next page. It returns false, leaving the cursor
// unchanged, when the ceiling has been reached.
func (c *PageCursor) Advance() bool {
	if c.AtCeiling() {
		return false
	}
	c.current++
	return true
}
