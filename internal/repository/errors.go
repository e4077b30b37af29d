package repository

import "errors"

var (
	// ErrNavigationFailed is returned when a page could not be loaded.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrElementNotFound is returned when a query matched nothing before its deadline.
	ErrElementNotFound = errors.New("element not found")
	// ErrOptionNotFound is returned when a <select> has no option with the requested label.
	ErrOptionNotFound = errors.New("option not found")
	// ErrStaleElement is returned when an element handle no longer refers to a node in the page.
	ErrStaleElement = errors.New("stale element")

	ErrBatchNotFound = errors.New("batch not found")
	ErrQueueEmpty    = errors.New("queue is empty")

	// ErrMissingColumn is returned by dataset readers when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupportedFormat is returned for dataset files no reader understands.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)
