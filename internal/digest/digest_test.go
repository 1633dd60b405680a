package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	a := Sum([]byte("hello"))
	assert.Len(t, a, Size)
	assert.Equal(t, a, SumString("hello"))
	assert.NotEqual(t, a, SumString("hello!"))
	assert.True(t, Valid(a))
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("abc"))
	assert.False(t, Valid("zz0123456789abcdef0123456789abcd"))
}
