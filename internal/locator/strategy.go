// Package locator resolves UI roles to page elements by trying an ordered
// list of strategies until one of them finds something.
package locator

import (
	"context"
	"fmt"

	"github.com/user/titledate-verifier/internal/repository"
)

// Strategy is one way of finding the element(s) that play a role.
type Strategy interface {
	// Locate waits for a single element.
	Locate(ctx context.Context, b repository.BrowserRepository) (repository.Element, error)
	// LocateAll returns every element currently matching, without waiting.
	LocateAll(ctx context.Context, b repository.BrowserRepository) ([]repository.Element, error)
	String() string
}

type queryStrategy struct {
	q repository.Query
}

// FromQuery returns a strategy backed by a single browser query.
func FromQuery(q repository.Query) Strategy {
	return queryStrategy{q: q}
}

// XPath is shorthand for an XPath query strategy.
func XPath(expr string, clickable bool) Strategy {
	return FromQuery(repository.Query{By: repository.ByXPath, Expr: expr, Clickable: clickable})
}

func (s queryStrategy) Locate(ctx context.Context, b repository.BrowserRepository) (repository.Element, error) {
	return b.Find(ctx, s.q)
}

func (s queryStrategy) LocateAll(ctx context.Context, b repository.BrowserRepository) ([]repository.Element, error) {
	return b.FindAll(ctx, s.q)
}

func (s queryStrategy) String() string {
	if s.q.Clickable {
		return fmt.Sprintf("%s(%s, clickable)", s.q.By, s.q.Expr)
	}
	return fmt.Sprintf("%s(%s)", s.q.By, s.q.Expr)
}

// Predicate decides whether a located element is acceptable.
type Predicate func(ctx context.Context, b repository.BrowserRepository, el repository.Element) (bool, error)

type whereStrategy struct {
	inner Strategy
	desc  string
	keep  Predicate
}

// Where narrows s to the elements accepted by keep. desc names the
// predicate in logs.
func Where(s Strategy, desc string, keep Predicate) Strategy {
	return whereStrategy{inner: s, desc: desc, keep: keep}
}

func (s whereStrategy) Locate(ctx context.Context, b repository.BrowserRepository) (repository.Element, error) {
	// wait for at least one candidate before filtering
	if _, err := s.inner.Locate(ctx, b); err != nil {
		return nil, err
	}
	els, err := s.LocateAll(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: no candidate is %s", repository.ErrElementNotFound, s.desc)
	}
	return els[0], nil
}

func (s whereStrategy) LocateAll(ctx context.Context, b repository.BrowserRepository) ([]repository.Element, error) {
	els, err := s.inner.LocateAll(ctx, b)
	if err != nil {
		return nil, err
	}
	kept := make([]repository.Element, 0, len(els))
	for _, el := range els {
		ok, err := s.keep(ctx, b, el)
		if err != nil {
			continue
		}
		if ok {
			kept = append(kept, el)
		}
	}
	return kept, nil
}

func (s whereStrategy) String() string {
	return fmt.Sprintf("%s where %s", s.inner, s.desc)
}
