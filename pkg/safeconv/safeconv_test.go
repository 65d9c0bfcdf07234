package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), MustIntToUint64(0))
	assert.Equal(t, uint64(4096), MustIntToUint64(4096))
	assert.Equal(t, uint64(MaxInt), MustIntToUint64(MaxInt))

	assert.PanicsWithValue(t, "safeconv: negative int to uint64 conversion", func() {
		MustIntToUint64(-1)
	})
}

func TestMustInt64ToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(math.MaxInt64), MustInt64ToUint64(math.MaxInt64))

	assert.PanicsWithValue(t, "safeconv: negative int64 to uint64 conversion", func() {
		MustInt64ToUint64(math.MinInt64)
	})
}

func TestUint64ToInt64(t *testing.T) {
	t.Parallel()

	got, ok := Uint64ToInt64(5 << 20)
	assert.True(t, ok)
	assert.Equal(t, int64(5<<20), got)

	got, ok = Uint64ToInt64(math.MaxInt64)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), got)

	_, ok = Uint64ToInt64(math.MaxInt64 + 1)
	assert.False(t, ok)
}

func TestClampInt64ToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42, ClampInt64ToInt(42))
	assert.Equal(t, -7, ClampInt64ToInt(-7))
	assert.Equal(t, MaxInt, ClampInt64ToInt(math.MaxInt64))
}
