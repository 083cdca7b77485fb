package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetPut(t *testing.T) {
	p := NewPool(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b **bytes.Buffer) { (*b).Reset() },
	)

	buf := p.Get()
	buf.WriteString("hello")
	p.Put(buf)

	// The reset hook must wipe the buffer before reuse.
	again := p.Get()
	assert.Equal(t, 0, again.Len())
	p.Put(again)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Gets)
	assert.Equal(t, int64(2), stats.Puts)
	assert.Equal(t, int64(2), stats.Resets)
}

func TestPoolNilReset(t *testing.T) {
	p := NewPool(func() []byte { return make([]byte, 8) }, nil)

	b := p.Get()
	require.Len(t, b, 8)
	p.Put(b)

	assert.Equal(t, int64(0), p.Stats().Resets)
}

func TestStatsHitRate(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.HitRate())
	assert.Equal(t, 0.75, Stats{Gets: 4, News: 1}.HitRate())
}

func TestBuffersSeedCapacity(t *testing.T) {
	buf := Buffers.Get()
	defer Buffers.Put(buf)

	assert.GreaterOrEqual(t, buf.Cap(), 4096)
	assert.Equal(t, 0, buf.Len())
}
