package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/titledate-verifier/internal/repository"
	"github.com/user/titledate-verifier/internal/repository/browsertest"
)

func TestChain_ResolveFirstSuccessWins(t *testing.T) {
	page := browsertest.NewPage("p")
	b := browsertest.New(page)
	b.SetCurrent(page)
	second := b.El("second")
	third := b.El("third")
	page.Add("//b", second).Add("//c", third)

	ch := Chain{Role: RoleConfirm, Strategies: []Strategy{XPath("//a", false), XPath("//b", false), XPath("//c", false)}}
	m, err := ch.Resolve(context.Background(), b, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID(), m.Element.ID())
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "xpath(//b)", m.Strategy.String())
}

func TestChain_ResolveClickableSkipsHidden(t *testing.T) {
	page := browsertest.NewPage("p")
	b := browsertest.New(page)
	b.SetCurrent(page)
	hidden := b.El("hidden")
	hidden.Hidden = true
	page.Add("//a", hidden)

	_, err := Chain{Role: RoleYearOption, Strategies: []Strategy{XPath("//a", true)}}.Resolve(context.Background(), b, 0)
	require.Error(t, err)

	m, err := Chain{Role: RoleYearOption, Strategies: []Strategy{XPath("//a", false)}}.Resolve(context.Background(), b, 0)
	require.NoError(t, err)
	assert.Equal(t, hidden.ID(), m.Element.ID())
}

func TestChain_Exhausted(t *testing.T) {
	b := browsertest.New(browsertest.NewPage("empty"))
	b.SetCurrent(b.Start)
	ch := Chain{Role: RoleDayCell, Strategies: []Strategy{XPath("//a", false), XPath("//b", false)}}

	_, err := ch.Resolve(context.Background(), b, time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocatorExhausted)
	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, RoleDayCell, ex.Role)
	assert.Len(t, ex.Attempts, 2)
	assert.ErrorIs(t, ex.Attempts[0], repository.ErrElementNotFound)

	_, err = Chain{Role: RoleConfirm}.Resolve(context.Background(), b, 0)
	assert.ErrorIs(t, err, ErrLocatorExhausted)
}

func TestChain_StopsWhenContextDone(t *testing.T) {
	b := browsertest.New(browsertest.NewPage("empty"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Chain{Role: RoleConfirm, Strategies: []Strategy{XPath("//a", false)}}.Resolve(ctx, b, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_ResolveAllUsesFirstNonEmptyStrategy(t *testing.T) {
	page := browsertest.NewPage("p")
	b := browsertest.New(page)
	b.SetCurrent(page)
	page.Add("//b", b.El("1"), b.El("2")).Add("//c", b.El("3"))

	ch := Chain{Role: RoleResultAnchor, Strategies: []Strategy{XPath("//a", false), XPath("//b", false), XPath("//c", false)}}
	els, m, err := ch.ResolveAll(context.Background(), b, 0)
	require.NoError(t, err)
	assert.Len(t, els, 2)
	assert.Equal(t, 1, m.Index)
}

func TestWhere_FiltersCandidates(t *testing.T) {
	page := browsertest.NewPage("p")
	b := browsertest.New(page)
	b.SetCurrent(page)
	disabled := b.El("next")
	disabled.Attrs["class"] = "page-next disable"
	enabled := b.El("next")
	page.Add("//a", disabled).Add("//b", enabled)

	notDisabled := func(ctx context.Context, br repository.BrowserRepository, el repository.Element) (bool, error) {
		class, _, err := br.Attribute(ctx, el, "class")
		return !strings.Contains(class, "disable"), err
	}
	ch := Chain{Role: RoleNextPage, Strategies: []Strategy{XPath("//a", false), XPath("//b", false)}}.Filter("enabled", notDisabled)

	m, err := ch.Resolve(context.Background(), b, 0)
	require.NoError(t, err)
	assert.Equal(t, enabled.ID(), m.Element.ID())
	assert.Equal(t, "xpath(//b) where enabled", m.Strategy.String())
}

func TestDefaultCatalog_HasEveryRole(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	for _, r := range KnownRoles {
		assert.NotEmpty(t, c.Chain(r, nil).Strategies, "role %s", r)
	}
	assert.Len(t, c.Roles(), len(KnownRoles))
}

func TestCatalog_ChainExpandsPlaceholders(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	vars := DateVars(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Vars{"year": "2020", "month": "5", "date": "2020-05-01"}, vars)

	ch := c.Chain(RoleDayCellInMonth, vars)
	require.Len(t, ch.Strategies, 1)
	s := ch.Strategies[0].String()
	assert.Contains(t, s, "'5月'")
	assert.Contains(t, s, "'2020-05-01'")
	assert.NotContains(t, s, "{")

	yo := c.Chain(RoleYearOption, vars)
	assert.Equal(t, "xpath(//span[text()='2020'], clickable)", yo.Strategies[0].String())
}

func TestLoad_OverrideReplacesRoles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
roles:
  next-page:
    strategies:
      - {by: css, expr: "a.next-btn"}
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	ch := c.Chain(RoleNextPage, nil)
	require.Len(t, ch.Strategies, 1)
	assert.Equal(t, "css(a.next-btn)", ch.Strategies[0].String())
	// hint and untouched roles keep their defaults
	assert.NotEmpty(t, c.Hint(RoleNextPage))
	assert.Len(t, c.Chain(RoleResultAnchor, nil).Strategies, 3)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown role":  "roles:\n  bogus:\n    strategies:\n      - {by: xpath, expr: //a}\n",
		"unknown by":    "roles:\n  confirm:\n    strategies:\n      - {by: regex, expr: //a}\n",
		"empty expr":    "roles:\n  confirm:\n    strategies:\n      - {by: css, expr: ''}\n",
		"no strategies": "roles:\n  confirm:\n    strategies: []\n",
		"bad yaml":      "roles: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "td.name a", c.Hint(RoleResultTitle))
}
