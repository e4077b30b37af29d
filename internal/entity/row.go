package entity

import (
	"errors"
	"fmt"
)

// ErrMalformedRow marks a spreadsheet row that cannot be verified: a missing
// or unparsable date, or an empty title.
var ErrMalformedRow = errors.New("malformed row")

// RawRow is one data row as read from the spreadsheet. Date holds a
// time.Time, a float64 spreadsheet serial, or a string.
type RawRow struct {
	Number int
	Date   any
	Title  string
}

// MalformedRowError carries the reason a row was skipped.
type MalformedRowError struct {
	Row    int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }
