package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize(t *testing.T) {
	cases := []struct {
		d, interval, want uint64
	}{
		{0, 100, 100},
		{1, 100, 100},
		{99, 100, 100},
		{100, 100, 100},
		{101, 100, 200},
		{29999, 30000, 30000},
		{30001, 30000, 60000},
		{7, 0, 7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Quantize(c.d, c.interval), "Quantize(%d, %d)", c.d, c.interval)
	}
}

func TestQuantizeIdempotentAndMonotonic(t *testing.T) {
	const interval = 100
	prev := uint64(0)
	for d := uint64(0); d < 1000; d++ {
		q := Quantize(d, interval)
		require.GreaterOrEqual(t, q, d)
		require.Zero(t, q%interval)
		require.Equal(t, q, Quantize(q, interval))
		require.GreaterOrEqual(t, q, prev)
		prev = q
	}
}

func TestEmptyHistogram(t *testing.T) {
	h := NewHistogram(100, MaxDuration32)
	assert.Zero(t, h.Count())
	assert.Zero(t, h.ValueAtPercentile(90))
	assert.Zero(t, h.Mean())
	assert.Zero(t, h.Max())
	assert.Nil(t, h.Snapshot())
	assert.Zero(t, h.Snapshot().CountBetween(0, 1000))
}

func TestHistogramQueries(t *testing.T) {
	h := NewHistogram(100, MaxDuration32)
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, h.Record(i * 100))
	}

	assert.Equal(t, uint64(10), h.Count())
	assert.Equal(t, uint64(900), h.ValueAtPercentile(90))
	assert.Equal(t, uint64(1000), h.Max())
	assert.InDelta(t, 550, h.Mean(), 0.001)

	dist := h.Snapshot()
	assert.Len(t, dist, 10)
	assert.Equal(t, uint64(3), dist.CountBetween(101, 400))
	assert.Equal(t, uint64(1), dist.CountAt(500))
	assert.Zero(t, dist.CountAt(550))
	assert.Zero(t, dist.CountBetween(400, 300))
	assert.Equal(t, uint64(1000), dist.Max())
}

func TestHistogramRoundsUpToUnit(t *testing.T) {
	h := NewHistogram(30000, MaxDuration32)
	require.NoError(t, h.Record(1))
	require.NoError(t, h.Record(30000))
	require.NoError(t, h.Record(30001))

	dist := h.Snapshot()
	assert.Equal(t, uint64(2), dist.CountAt(30000))
	assert.Equal(t, uint64(1), dist.CountAt(60000))
	assert.Equal(t, uint64(60000), h.Max())
}

func TestHistogramLargeValues(t *testing.T) {
	h := NewHistogram(100, MaxDuration32)
	require.NoError(t, h.Record(4_000_000))
	assert.Equal(t, uint64(4_000_000), h.Max())
	assert.Equal(t, uint64(4_000_000), h.ValueAtPercentile(90))
	assert.Equal(t, uint64(1), h.Snapshot().CountAt(4_000_000))

	require.NoError(t, h.Record(Quantize(math.MaxUint32, 100)))
	assert.Equal(t, uint64(2), h.Count())
	assert.Equal(t, uint64(math.MaxUint32/100+1)*100, h.Max())
	assert.Equal(t, h.Max(), h.ValueAtPercentile(90))
	assert.Equal(t, h.Max(), h.Snapshot().Max())

	err := h.Record(math.MaxUint32 + 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Equal(t, uint64(2), h.Count())
}

func TestSlicesMedianOf(t *testing.T) {
	id := func(v float64) float64 { return v }
	assert.Equal(t, 2.0, SlicesMedianOf([]float64{3, 1, 2}, id))
	assert.Equal(t, 2.5, SlicesMedianOf([]float64{4, 1, 3, 2}, id))
	assert.Zero(t, SlicesMedianOf([]float64{}, id))
	assert.Equal(t, 2.5, SliceAverageFunc([]float64{4, 1, 3, 2}, id))
}
