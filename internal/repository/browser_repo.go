package repository

import (
	"context"
	"time"
)

// By selects the query language of a Query.
type By int

const (
	ByXPath By = iota
	ByCSS
	ByID
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByID:
		return "id"
	default:
		return "xpath"
	}
}

// Query describes how to find elements in the current page.
type Query struct {
	By   By
	Expr string
	// Clickable makes Find wait until the element is also visible.
	Clickable bool
}

// Element is a handle to a node in the current page. Handles are only valid
// until the next navigation.
type Element interface {
	ID() string
}

// BrowserRepository is the contract for driving a single shared browser
// session. Implementations serialize calls, so one session is safe to use from
// one worker at a time.
type BrowserRepository interface {
	// Navigate loads url in the session's tab. A single attempt is made;
	// failures wrap ErrNavigationFailed.
	Navigate(ctx context.Context, url string) error
	// Find waits until q matches an element (a visible one when q.Clickable)
	// or ctx is done, in which case it returns ErrElementNotFound.
	Find(ctx context.Context, q Query) (Element, error)
	// FindAll returns every element currently matching q without waiting.
	FindAll(ctx context.Context, q Query) ([]Element, error)
	// Click scrolls el into view and clicks it with an injected script.
	Click(ctx context.Context, el Element) error
	// Text returns the rendered text of el.
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns the named attribute of el and whether it is set.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	// SelectOption picks the option of a <select> whose visible label equals
	// label, or returns ErrOptionNotFound.
	SelectOption(ctx context.Context, el Element, label string) error
	// Type clears an input and types text into it.
	Type(ctx context.Context, el Element, text string) error
	// Submit presses Enter in el.
	Submit(ctx context.Context, el Element) error
	// VisibleText returns document.body.innerText.
	VisibleText(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// Wait pauses for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}
