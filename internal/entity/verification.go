package entity

import (
	"fmt"
	"time"
)

// DateLayout is the canonical publication date format used in the search UI.
const DateLayout = "2006-01-02"

// VerificationRequest is one (publication date, title) pair to check.
type VerificationRequest struct {
	RowNumber       int
	PublicationDate time.Time
	Title           string
}

// DateText returns the publication date in DateLayout.
func (r VerificationRequest) DateText() string {
	return r.PublicationDate.Format(DateLayout)
}

func (r VerificationRequest) String() string {
	return fmt.Sprintf("row %d (%s)", r.RowNumber, r.DateText())
}
