package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
		{"trim", "  标题  ", "标题"},
		{"collapse newline and tab", "A\n\tB", "A B"},
		{"ideographic space", "测试\u3000标题", "测试 标题"},
		{"no-break space", "A\u00a0B", "A B"},
		{"zero width space", "测\u200b试", "测试"},
		{"byte order mark", "\ufeff标题", "标题"},
		{"full-width latin", "ＡＢＣ１２３", "ABC123"},
		{"full-width punctuation", "标题（一）", "标题(一)"},
		{"punctuation kept", "标题：副标题！", "标题:副标题!"},
		{"half-width katakana", "ｶﾀｶﾅ", "カタカナ"},
		{"ligature", "ﬁle", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"  测试标题 ",
		"A\n\tB",
		"ＡＢＣ\u200b\u3000ｄｅｆ",
		"e\u200d\u0301",
		" \u0301x",
		"标题（一）：\ufeff副标题",
		"ｶﾞｷﾞ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_WhitespaceEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("A B"), Normalize("A\n\tB"))
	assert.Equal(t, Normalize("A B"), Normalize("A \r\n  B"))
}

func TestNormalize_FullWidthMatchesHalfWidth(t *testing.T) {
	pairs := [][2]string{
		{"Ａ", "A"},
		{"１２３", "123"},
		{"（", "("},
		{"！", "!"},
		{"ｶ", "カ"},
	}
	for _, p := range pairs {
		assert.Equal(t, Normalize(p[1]), Normalize(p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("测试标题", " 测试标题\n"))
	assert.False(t, Equal("测试标题", "测试标题。"))
	assert.False(t, Equal("测试标题", "测试标"))
}

func TestContains(t *testing.T) {
	page := "首页\n  测试\u3000标题  \n下一页"
	assert.True(t, Contains(page, "测试 标题"))
	assert.False(t, Contains(page, "不存在的标题"))
	assert.False(t, Contains(page, ""))
	assert.False(t, Contains(page, " \n"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "测试...", Truncate("测试标题", 2))
}
