// Package diagnostics summarizes page snapshots so a failed locator can be
// fixed from the logs alone.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/titledate-verifier/pkg/textnorm"
)

const (
	DefaultLimit = 10
	textLimit    = 50
)

// ElementSummary is a short description of one element.
type ElementSummary struct {
	Tag   string `json:"tag"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	Text  string `json:"text,omitempty"`
}

func (s ElementSummary) String() string {
	var b strings.Builder
	b.WriteString(s.Tag)
	if s.ID != "" {
		b.WriteString("#" + s.ID)
	}
	if s.Class != "" {
		b.WriteString("." + strings.Join(strings.Fields(s.Class), "."))
	}
	if s.Text != "" {
		fmt.Fprintf(&b, " %q", s.Text)
	}
	return b.String()
}

// Summarize parses html and describes up to limit elements matching the CSS
// selector. Script and style contents never count as text.
func Summarize(html, selector string, limit int) ([]ElementSummary, error) {
	if selector == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	doc.Find("script, style").Remove()

	var out []ElementSummary
	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		out = append(out, ElementSummary{
			Tag:   goquery.NodeName(s),
			ID:    id,
			Class: strings.TrimSpace(class),
			Text:  textnorm.Truncate(textnorm.Normalize(s.Text()), textLimit),
		})
		return len(out) < limit
	})
	return out, nil
}

// Lines renders summaries one per line, for debug logs.
func Lines(summaries []ElementSummary) []string {
	lines := make([]string, len(summaries))
	for i, s := range summaries {
		lines[i] = fmt.Sprintf("[%d] %s", i, s)
	}
	return lines
}
