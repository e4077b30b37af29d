package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashRequest(t *testing.T) {
	a := HashRequest("2020-05-01", "测试标题")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashRequest("2020-05-01", "测试标题"))
	assert.NotEqual(t, a, HashRequest("2020-05-02", "测试标题"))
	// the separator keeps field boundaries distinct
	assert.NotEqual(t, HashRequest("ab", "c"), HashRequest("a", "bc"))
}
