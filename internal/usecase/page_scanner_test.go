package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/titledate-verifier/internal/repository/browsertest"
	"github.com/user/titledate-verifier/pkg/textnorm"
)

func TestScanCurrentPage_Passes(t *testing.T) {
	target := textnorm.Normalize("测试标题")

	tests := []struct {
		name     string
		setup    func(p pageBuilder)
		wantPass string
		matched  bool
	}{
		{
			name:     "structured",
			setup:    func(p pageBuilder) { p.add("result-title", "其他标题", "  测试标题\u3000") },
			wantPass: PassStructured,
			matched:  true,
		},
		{
			name:     "anchor fallback",
			setup:    func(p pageBuilder) { p.add("detail-link", "其他标题", "测试\u200b标题") },
			wantPass: PassAnchor,
			matched:  true,
		},
		{
			name: "page text containment",
			setup: func(p pageBuilder) {
				p.add("result-title", "测试标题（修订版）")
				p.page.VisibleText = "共 1 条 测试标题（修订版） 下载"
			},
			wantPass: PassPageText,
			matched:  true,
		},
		{
			name:  "nothing on page",
			setup: func(p pageBuilder) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, p := newBrowser()
			tt.setup(pageBuilder{b: b, page: p})
			s := NewPageScanner(b, testCatalog(t), Timing{}, 0, nop())

			out := s.ScanCurrentPage(context.Background(), target)

			assert.Equal(t, tt.matched, out.Matched)
			assert.Equal(t, tt.wantPass, out.Pass)
		})
	}
}

func TestScanCurrentPage_SingleCharacterDifferenceNeverMatches(t *testing.T) {
	target := textnorm.Normalize("测试标题")
	for _, candidate := range []string{
		"测试标是",
		"测试标",
		"测试标题X",
		"X测试标题",
		"测试,标题",
		"测 试标题",
	} {
		t.Run(candidate, func(t *testing.T) {
			b, p := newBrowser()
			withResults(b, p, candidate)
			p.Add("detail-link", b.El(candidate))
			s := NewPageScanner(b, testCatalog(t), Timing{}, 0, nop())

			out := s.ScanCurrentPage(context.Background(), target)

			assert.False(t, out.Matched)
		})
	}
}

func TestScanCurrentPage_AnchorPassHonoursCandidateCap(t *testing.T) {
	target := textnorm.Normalize("测试标题")
	b, p := newBrowser()
	for i := 0; i < 3; i++ {
		p.Add("any-anchor", b.El("无关链接"))
	}
	p.Add("any-anchor", b.El("测试标题"))

	capped := NewPageScanner(b, testCatalog(t), Timing{}, 3, nop())
	assert.False(t, capped.ScanCurrentPage(context.Background(), target).Matched)

	wide := NewPageScanner(b, testCatalog(t), Timing{}, 4, nop())
	out := wide.ScanCurrentPage(context.Background(), target)
	assert.True(t, out.Matched)
	assert.Equal(t, PassAnchor, out.Pass)
}

func TestScanCurrentPage_EmptyTargetNeverMatches(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "")
	p.VisibleText = "任何文本"
	s := NewPageScanner(b, testCatalog(t), Timing{}, 0, nop())

	assert.False(t, s.ScanCurrentPage(context.Background(), "").Matched)
}

type pageBuilder struct {
	b    *browsertest.Browser
	page *browsertest.Page
}

func (p pageBuilder) add(expr string, texts ...string) {
	for _, text := range texts {
		p.page.Add(expr, p.b.El(text))
	}
}
