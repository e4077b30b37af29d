package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/user/titledate-verifier/internal/entity"
)

func request(title string) entity.VerificationRequest {
	return entity.VerificationRequest{RowNumber: 2, PublicationDate: testDate, Title: title}
}

func TestVerify_Matched(t *testing.T) {
	b, _ := searchPage("其他标题", "测试标题")
	limiter := rate.NewLimiter(rate.Inf, 1)
	v := NewVerifier(b, testCatalog(t), nil, limiter, testVerifierConfig(), nop())

	var steps []string
	got := v.Verify(context.Background(), request("测试标题"), func(s string) { steps = append(steps, s) })

	assert.Equal(t, entity.Matched(PassStructured, 1), got)
	assert.Equal(t, []string{StateOpeningSearchPage, StateSelectingDate, StateScanning}, steps)
	assert.Equal(t, 1, b.Navigations)
	assert.Equal(t, []string{"2020年"}, b.Selected)
}

func TestVerify_NotMatched(t *testing.T) {
	b, _ := searchPage("其他标题")
	v := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop())

	got := v.Verify(context.Background(), request("不存在的标题"), nil)

	assert.Equal(t, entity.VerdictNotMatched, got.Kind)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, StopNoNextControl, got.Reason)
}

func TestVerify_DateSelectionFailure(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "测试标题")

	v := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop())
	got := v.Verify(context.Background(), request("测试标题"), nil)

	assert.Equal(t, entity.Inconclusive(entity.ReasonDateSelectionFailed), got)
}

func TestVerify_PaginationFailure(t *testing.T) {
	b, p := searchPage("其他标题")
	next := b.El("下一页")
	next.ClickErr = errors.New("node is detached")
	p.Add("next-a", next)

	v := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop())
	got := v.Verify(context.Background(), request("测试标题"), nil)

	assert.Equal(t, entity.Inconclusive(entity.ReasonPaginationFailed), got)
}

func TestVerify_Navigation(t *testing.T) {
	transient := errors.New("net::ERR_CONNECTION_CLOSED")

	tests := []struct {
		name            string
		errs            []error
		wantKind        entity.VerdictKind
		wantNavigations int
	}{
		{name: "retried after dropped connection", errs: []error{transient}, wantKind: entity.VerdictMatched, wantNavigations: 2},
		{name: "attempts used up", errs: []error{transient, transient, transient}, wantKind: entity.VerdictInconclusive, wantNavigations: 3},
		{name: "permanent failure not retried", errs: []error{errors.New("net::ERR_NAME_NOT_RESOLVED")}, wantKind: entity.VerdictInconclusive, wantNavigations: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := searchPage("测试标题")
			b.NavigateErrs = tt.errs

			v := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop())
			got := v.Verify(context.Background(), request("测试标题"), nil)

			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantNavigations, b.Navigations)
			if tt.wantKind == entity.VerdictInconclusive {
				assert.Equal(t, entity.ReasonPageUnreachable, got.Reason)
			}
		})
	}
}

func TestVerify_TitleFirst(t *testing.T) {
	b, p := searchPage("测试标题")
	p.Add("title-input", b.El(""))
	p.Add("search-btn", b.El("检索"))
	cfg := testVerifierConfig()
	cfg.TitleFirst = true

	var steps []string
	got := NewVerifier(b, testCatalog(t), nil, nil, cfg, nop()).
		Verify(context.Background(), request(" 测试标题 "), func(s string) { steps = append(steps, s) })

	assert.Equal(t, entity.VerdictMatched, got.Kind)
	assert.Equal(t, []string{"测试标题"}, b.Typed)
	assert.Contains(t, steps, StateSearchingTitle)
}

func TestVerify_TitleSearchFailure(t *testing.T) {
	b, _ := searchPage("测试标题")
	cfg := testVerifierConfig()
	cfg.TitleFirst = true

	got := NewVerifier(b, testCatalog(t), nil, nil, cfg, nop()).Verify(context.Background(), request("测试标题"), nil)

	assert.Equal(t, entity.Inconclusive(entity.ReasonTitleSearchFailed), got)
}

func TestVerify_EmptyTitle(t *testing.T) {
	b, _ := searchPage("测试标题")

	got := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop()).
		Verify(context.Background(), request(" \u200b "), nil)

	assert.Equal(t, entity.VerdictInconclusive, got.Kind)
	assert.Zero(t, b.Navigations)
}

func TestVerify_Cancelled(t *testing.T) {
	b, _ := searchPage("测试标题")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewVerifier(b, testCatalog(t), nil, nil, testVerifierConfig(), nop()).Verify(ctx, request("测试标题"), nil)

	assert.Equal(t, entity.Inconclusive(entity.ReasonCancelled), got)
}

func TestVerify_CachesFinalVerdicts(t *testing.T) {
	b, _ := searchPage("测试标题")
	cache := newMemCache()
	v := NewVerifier(b, testCatalog(t), cache, nil, testVerifierConfig(), nop())

	first := v.Verify(context.Background(), request("测试标题"), nil)
	require.Equal(t, entity.VerdictMatched, first.Kind)
	assert.False(t, first.Cached)

	// Same title after normalization hits the cache.
	second := v.Verify(context.Background(), request("测试标题\u3000"), nil)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Pass, second.Pass)
	assert.Equal(t, 1, b.Navigations)
	assert.Equal(t, 1, cache.puts)
}

func TestVerify_DoesNotCacheInconclusive(t *testing.T) {
	b, p := newBrowser()
	withResults(b, p, "测试标题")
	cache := newMemCache()
	v := NewVerifier(b, testCatalog(t), cache, nil, testVerifierConfig(), nop())

	v.Verify(context.Background(), request("测试标题"), nil)
	v.Verify(context.Background(), request("测试标题"), nil)

	assert.Zero(t, cache.puts)
	assert.Equal(t, 2, b.Navigations)
}

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, "", reasonLabel(entity.Matched(PassAnchor, 1)))
	assert.Equal(t, entity.ReasonUnexpectedFailure, reasonLabel(entity.Inconclusive(entity.ReasonUnexpectedFailure+": boom")))
	assert.Equal(t, "other", reasonLabel(entity.Inconclusive("empty title")))
}

func TestVerify_CancelledDuringScanIsNotCached(t *testing.T) {
	b, p := searchPage("其他标题")
	p.Add("next-a", b.El("下一页"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.OnVisibleText = cancel
	cache := newMemCache()

	got := NewVerifier(b, testCatalog(t), cache, nil, testVerifierConfig(), nop()).Verify(ctx, request("测试标题"), nil)

	assert.Equal(t, entity.Inconclusive(entity.ReasonCancelled), got)
	assert.Zero(t, cache.puts)
}
