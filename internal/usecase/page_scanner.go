package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/titledate-verifier/internal/locator"
	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/pkg/textnorm"
)

// Matching passes, strictest first.
const (
	PassStructured = "structured"
	PassAnchor     = "anchor"
	PassPageText   = "page_text"
)

const (
	DefaultCandidateCap = 20
	loggedCandidates    = 5
)

// ScanOutcome is the result of scanning one result page.
type ScanOutcome struct {
	Matched bool
	Pass    string
}

// PageScanner looks for a normalized title on the current result page.
type PageScanner struct {
	s            *session
	candidateCap int
}

// NewPageScanner creates a PageScanner. The anchor pass inspects at most
// candidateCap elements.
func NewPageScanner(browser repository.BrowserRepository, catalog *locator.Catalog, timing Timing, candidateCap int, logger *zap.Logger) *PageScanner {
	if candidateCap <= 0 {
		candidateCap = DefaultCandidateCap
	}
	return &PageScanner{
		s:            &session{browser: browser, catalog: catalog, timing: timing, logger: logger},
		candidateCap: candidateCap,
	}
}

// ScanCurrentPage runs the structured, anchor and page text passes in that
// order and stops at the first match. The first two compare whole titles;
// the page text pass accepts the title anywhere in the visible text. An
// empty target never matches.
func (p *PageScanner) ScanCurrentPage(ctx context.Context, target string) ScanOutcome {
	if target == "" {
		return ScanOutcome{}
	}
	if p.structuredPass(ctx, target) {
		return ScanOutcome{Matched: true, Pass: PassStructured}
	}
	if p.anchorPass(ctx, target) {
		return ScanOutcome{Matched: true, Pass: PassAnchor}
	}
	if p.pageTextPass(ctx, target) {
		return ScanOutcome{Matched: true, Pass: PassPageText}
	}
	return ScanOutcome{}
}

func (p *PageScanner) structuredPass(ctx context.Context, target string) bool {
	els, _, err := p.s.catalog.Chain(locator.RoleResultTitle, nil).ResolveAll(ctx, p.s.browser, p.s.timing.Resolve)
	if err != nil {
		p.s.logger.Debug("structured pass: no result titles", zap.Error(err))
		return false
	}
	p.s.logger.Debug("structured pass", zap.Int("candidates", len(els)))
	return p.anyEqual(ctx, els, target)
}

func (p *PageScanner) anchorPass(ctx context.Context, target string) bool {
	els, m, err := p.s.catalog.Chain(locator.RoleResultAnchor, nil).ResolveAll(ctx, p.s.browser, p.s.timing.Resolve)
	if err != nil {
		p.s.logger.Debug("anchor pass: no anchors", zap.Error(err))
		return false
	}
	p.s.logger.Debug("anchor pass", zap.Int("candidates", len(els)), zap.Stringer("strategy", m.Strategy))
	if len(els) > p.candidateCap {
		els = els[:p.candidateCap]
	}
	return p.anyEqual(ctx, els, target)
}

func (p *PageScanner) pageTextPass(ctx context.Context, target string) bool {
	text, err := p.s.browser.VisibleText(ctx)
	if err != nil {
		p.s.logger.Debug("page text pass: text unavailable", zap.Error(err))
		return false
	}
	return textnorm.Contains(text, target)
}

func (p *PageScanner) anyEqual(ctx context.Context, els []repository.Element, target string) bool {
	for i, el := range els {
		raw, err := p.s.browser.Text(ctx, el)
		if err != nil {
			p.s.logger.Debug("candidate text unavailable", zap.Int("index", i), zap.Error(err))
			continue
		}
		text := textnorm.Normalize(raw)
		if text == target {
			p.s.logger.Debug("exact match", zap.Int("index", i))
			return true
		}
		if i < loggedCandidates {
			p.s.logger.Debug("candidate", zap.Int("index", i), zap.String("text", textnorm.Truncate(text, 80)))
		}
	}
	return false
}
