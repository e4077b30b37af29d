package locator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/metrics"
)

// ErrLocatorExhausted is returned when no strategy of a role found an element.
var ErrLocatorExhausted = errors.New("locator exhausted")

// ExhaustedError records every failed strategy attempt for a role.
type ExhaustedError struct {
	Role     Role
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d strategies", ErrLocatorExhausted, e.Role, len(e.Attempts))
}

func (e *ExhaustedError) Unwrap() error { return ErrLocatorExhausted }

// Chain is the ordered strategy list of one role. Strategies are tried in
// declared order and the first success wins.
type Chain struct {
	Role       Role
	Strategies []Strategy
}

// Match is a successful resolution.
type Match struct {
	Element repository.Element
	// Index is the position of the winning strategy in the chain.
	Index    int
	Strategy Strategy
}

// Resolve returns the first element found by any strategy. Each attempt gets
// its own timeout so a missing element fails fast; a timeout <= 0 only
// bounds attempts by ctx.
func (c Chain) Resolve(ctx context.Context, b repository.BrowserRepository, timeout time.Duration) (Match, error) {
	attempts := make([]error, 0, len(c.Strategies))
	for i, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		sctx, cancel := withTimeout(ctx, timeout)
		el, err := s.Locate(sctx, b)
		cancel()
		if err == nil {
			c.observe(i)
			return Match{Element: el, Index: i, Strategy: s}, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", s, err))
	}
	return Match{}, &ExhaustedError{Role: c.Role, Attempts: attempts}
}

// ResolveAll returns the elements of the first strategy that yields any.
// The returned Match carries the winning strategy and no element.
func (c Chain) ResolveAll(ctx context.Context, b repository.BrowserRepository, timeout time.Duration) ([]repository.Element, Match, error) {
	attempts := make([]error, 0, len(c.Strategies))
	for i, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, Match{}, err
		}
		sctx, cancel := withTimeout(ctx, timeout)
		els, err := s.LocateAll(sctx, b)
		cancel()
		if err == nil && len(els) > 0 {
			c.observe(i)
			return els, Match{Index: i, Strategy: s}, nil
		}
		if err == nil {
			err = repository.ErrElementNotFound
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", s, err))
	}
	return nil, Match{}, &ExhaustedError{Role: c.Role, Attempts: attempts}
}

// From returns the chain without its first i strategies.
func (c Chain) From(i int) Chain {
	if i >= len(c.Strategies) {
		return Chain{Role: c.Role}
	}
	return Chain{Role: c.Role, Strategies: c.Strategies[i:]}
}

// Filter wraps every strategy of the chain with the same predicate.
func (c Chain) Filter(desc string, keep Predicate) Chain {
	out := Chain{Role: c.Role, Strategies: make([]Strategy, len(c.Strategies))}
	for i, s := range c.Strategies {
		out.Strategies[i] = Where(s, desc, keep)
	}
	return out
}

func (c Chain) observe(index int) {
	metrics.LocatorResolutions.WithLabelValues(string(c.Role), strconv.Itoa(index)).Inc()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
