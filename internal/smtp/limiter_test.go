package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnLimiterMaxConns(t *testing.T) {
	limiter := NewConnLimiter(2, 100)

	require.True(t, limiter.Acquire())
	require.True(t, limiter.Acquire())
	assert.Equal(t, 2, limiter.Current())

	// 超出并发上限
	assert.False(t, limiter.Acquire())

	limiter.Release()
	assert.Equal(t, 1, limiter.Current())
	assert.True(t, limiter.Acquire())
}

func TestConnLimiterRate(t *testing.T) {
	// 每秒 2 个新连接，桶容量 2
	limiter := NewConnLimiter(100, 2)

	assert.True(t, limiter.Acquire())
	assert.True(t, limiter.Acquire())
	assert.False(t, limiter.Acquire())
}

func TestConnLimiterReleaseBelowZero(t *testing.T) {
	limiter := NewConnLimiter(1, 10)

	limiter.Release()
	assert.Equal(t, 0, limiter.Current())

	assert.True(t, limiter.Acquire())
	assert.Equal(t, 1, limiter.Current())
}
