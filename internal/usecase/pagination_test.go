package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/titledate-verifier/internal/repository/browsertest"
)

const target = "测试标题"

func newWalker(t *testing.T, b *browsertest.Browser) *PaginationWalker {
	t.Helper()
	cat := testCatalog(t)
	return NewPaginationWalker(b, cat, Timing{}, NewPageScanner(b, cat, Timing{}, 0, nop()), nop())
}

func withIndicator(b *browsertest.Browser, p *browsertest.Page, current, total string) {
	p.Add("current", b.El(current))
	p.Add("total", b.El(total))
}

func TestFindAcrossPages_MatchOnSecondPage(t *testing.T) {
	b, first := newBrowser()
	withResults(b, first, "其他标题")
	withIndicator(b, first, "1", "2")
	second := browsertest.NewPage("second")
	withResults(b, second, "另一个标题", target)
	withIndicator(b, second, "2", "2")
	next := b.El("下一页")
	next.OnClick = func(b *browsertest.Browser) { b.SetCurrent(second) }
	first.Add("next-a", next)

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 5)

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, PassStructured, res.Pass)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.Pages)
}

func TestFindAcrossPages_StopsAtCeiling(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "其他标题")
	p.Add("next-a", b.El("下一页"))

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 3)

	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, StopCeiling, res.StopReason)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, b.Clicks, 2)
}

func TestFindAcrossPages_IndicatorOnLastPage(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "其他标题")
	withIndicator(b, p, "3", " 3 ")
	p.Add("next-a", b.El("下一页"))

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

	require.NoError(t, err)
	assert.Equal(t, StopLastPage, res.StopReason)
	assert.Equal(t, 1, res.Pages)
	assert.Empty(t, b.Clicks)
}

func TestFindAcrossPages_IndicatorPastTotal(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, target)
	withIndicator(b, p, "4", "3")

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, StopPastTotal, res.StopReason)
}

func TestFindAcrossPages_UnreadableIndicatorIsIgnored(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, target)
	withIndicator(b, p, "第一页", "3")

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, 1, res.Page)
}

func TestFindAcrossPages_SkipsDisabledNextControls(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
	}{
		{name: "class", attrs: map[string]string{"class": "btn Disabled"}},
		{name: "attribute", attrs: map[string]string{"disabled": ""}},
		{name: "aria", attrs: map[string]string{"aria-disabled": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, p := newBrowser()
			withResults(b, p, "其他标题")
			next := b.El("下一页")
			next.Attrs = tt.attrs
			p.Add("next-a", next)

			res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

			require.NoError(t, err)
			assert.Equal(t, StopNoNextControl, res.StopReason)
			assert.Equal(t, 1, res.Pages)
			assert.Empty(t, b.Clicks)
		})
	}
}

func TestFindAcrossPages_FallsBackToEnabledStrategy(t *testing.T) {
	b, first := newBrowser()
	withResults(b, first, "其他标题")
	disabled := b.El("下一页")
	disabled.Attrs = map[string]string{"class": "next disabled"}
	first.Add("next-a", disabled)
	second := browsertest.NewPage("second")
	withResults(b, second, target)
	next := b.El(">")
	next.OnClick = func(b *browsertest.Browser) { b.SetCurrent(second) }
	first.Add("next-b", next)

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, 2, res.Page)
	assert.True(t, b.Clicked(next))
	assert.False(t, b.Clicked(disabled))
}

func TestFindAcrossPages_ClickFailure(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "其他标题")
	next := b.El("下一页")
	next.ClickErr = errors.New("node is detached")
	p.Add("next-a", next)

	res, err := newWalker(t, b).FindAcrossPages(context.Background(), target, 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPagination)
	assert.Equal(t, 1, res.Pages)
}

func TestFindAcrossPages_Cancelled(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, target)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWalker(t, b).FindAcrossPages(ctx, target, 10)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindAcrossPages_CancelledMidScanIsNotExhaustion(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "其他标题")
	p.Add("next-a", b.El("下一页"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.OnVisibleText = cancel

	res, err := newWalker(t, b).FindAcrossPages(ctx, target, 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPagination)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.StopReason)
	assert.Empty(t, b.Clicks)
}
