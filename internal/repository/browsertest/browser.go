// Package browsertest provides an in-memory BrowserRepository whose pages are
// scripted by tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/titledate-verifier/internal/repository"
)

// Element is a scripted DOM node.
type Element struct {
	id      string
	Text    string
	Attrs   map[string]string
	Options []string
	Hidden  bool
	// ClickErr is returned by Click instead of clicking.
	ClickErr error
	// OnClick runs after a successful click, typically to swap pages.
	OnClick func(b *Browser)
}

func (e *Element) ID() string { return e.id }

// Page is a scripted document. Queries are matched by their exact Expr.
type Page struct {
	Name        string
	Elements    map[string][]*Element
	VisibleText string
	HTML        string
}

// NewPage returns an empty page.
func NewPage(name string) *Page {
	return &Page{Name: name, Elements: map[string][]*Element{}}
}

// Add registers elements under a query expression and returns the page.
func (p *Page) Add(expr string, els ...*Element) *Page {
	p.Elements[expr] = append(p.Elements[expr], els...)
	return p
}

// Browser is a scripted BrowserRepository.
type Browser struct {
	mu     sync.Mutex
	nextID int

	// Start is the page every successful navigation lands on.
	Start *Page
	// Current is the page queries run against.
	Current *Page
	// NavigateErrs are returned by successive Navigate calls before they
	// start succeeding.
	NavigateErrs []error
	// PanicOnNavigate makes Navigate panic with the given value.
	PanicOnNavigate any
	// OnVisibleText runs before VisibleText reads the current page.
	OnVisibleText func()

	Navigations int
	Clicks      []string
	Selected    []string
	Typed       []string
	Submitted   int
	Waits       []time.Duration
	Closed      bool
}

// New returns a browser that lands on start.
func New(start *Page) *Browser {
	return &Browser{Start: start}
}

// El creates an element with a unique id.
func (b *Browser) El(text string) *Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return &Element{id: fmt.Sprintf("el-%d", b.nextID), Text: text, Attrs: map[string]string{}}
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PanicOnNavigate != nil {
		panic(b.PanicOnNavigate)
	}
	b.Navigations++
	if len(b.NavigateErrs) > 0 {
		err := b.NavigateErrs[0]
		b.NavigateErrs = b.NavigateErrs[1:]
		return fmt.Errorf("%w: %s: %w", repository.ErrNavigationFailed, url, err)
	}
	b.Current = b.Start
	return nil
}

func (b *Browser) lookup(q repository.Query) []*Element {
	if b.Current == nil {
		return nil
	}
	var out []*Element
	for _, el := range b.Current.Elements[q.Expr] {
		if q.Clickable && el.Hidden {
			continue
		}
		out = append(out, el)
	}
	return out
}

func (b *Browser) Find(ctx context.Context, q repository.Query) (repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	els := b.lookup(q)
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrElementNotFound, q.Expr)
	}
	return els[0], nil
}

func (b *Browser) FindAll(ctx context.Context, q repository.Query) ([]repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	els := b.lookup(q)
	out := make([]repository.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (b *Browser) Click(ctx context.Context, el repository.Element) error {
	e := el.(*Element)
	b.mu.Lock()
	if e.ClickErr != nil {
		b.mu.Unlock()
		return e.ClickErr
	}
	b.Clicks = append(b.Clicks, e.id)
	b.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick(b)
	}
	return nil
}

// SetCurrent swaps the page queries run against.
func (b *Browser) SetCurrent(p *Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Current = p
}

func (b *Browser) Text(ctx context.Context, el repository.Element) (string, error) {
	return el.(*Element).Text, nil
}

func (b *Browser) Attribute(ctx context.Context, el repository.Element, name string) (string, bool, error) {
	v, ok := el.(*Element).Attrs[name]
	return v, ok, nil
}

func (b *Browser) SelectOption(ctx context.Context, el repository.Element, label string) error {
	e := el.(*Element)
	for _, o := range e.Options {
		if o == label {
			b.mu.Lock()
			b.Selected = append(b.Selected, label)
			b.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", repository.ErrOptionNotFound, label)
}

func (b *Browser) Type(ctx context.Context, el repository.Element, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Typed = append(b.Typed, text)
	return nil
}

func (b *Browser) Submit(ctx context.Context, el repository.Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Submitted++
	return nil
}

func (b *Browser) VisibleText(ctx context.Context) (string, error) {
	if b.OnVisibleText != nil {
		b.OnVisibleText()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Current == nil {
		return "", nil
	}
	return b.Current.VisibleText, nil
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Current == nil {
		return "<html></html>", nil
	}
	return b.Current.HTML, nil
}

func (b *Browser) Wait(ctx context.Context, d time.Duration) error {
	b.mu.Lock()
	b.Waits = append(b.Waits, d)
	b.mu.Unlock()
	return ctx.Err()
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// Clicked reports whether el was clicked at least once.
func (b *Browser) Clicked(el *Element) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.Clicks {
		if id == el.id {
			return true
		}
	}
	return false
}

var _ repository.BrowserRepository = (*Browser)(nil)
