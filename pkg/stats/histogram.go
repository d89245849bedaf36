package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Values are tracked in units of the sampling interval, exact up to 2^18
// units and within 0.001% above.
const histogramSigFigs = 5

// MaxDuration32 is the largest millisecond duration a 32 bit log field holds.
const MaxDuration32 = math.MaxUint32

// Histogram is a value/frequency accumulator for non-negative integer
// samples taken at a fixed sampling interval (the unit). Queries on an empty
// histogram return 0.
//
// Histogram is not safe for concurrent use.
type Histogram struct {
	unit     uint64
	maxUnits uint64
	hdr      *hdrhistogram.Histogram

	// exact largest recorded value in units
	max uint64
}

// NewHistogram returns a histogram accepting samples up to maxValue, rounded
// up to the enclosing unit boundary.
func NewHistogram(unit, maxValue uint64) *Histogram {
	if unit == 0 {
		unit = 1
	}
	maxUnits := maxValue/unit + 1
	// one unit of headroom keeps maxUnits off the trackable limit
	return &Histogram{
		unit:     unit,
		maxUnits: maxUnits,
		hdr:      hdrhistogram.New(1, int64(maxUnits+1), histogramSigFigs),
	}
}

func (h *Histogram) Unit() uint64 { return h.unit }

// Record adds a sample. Values are attributed to the enclosing unit boundary
// at or above v. Samples beyond the configured range are rejected.
func (h *Histogram) Record(v uint64) error {
	units := v/h.unit + min(v%h.unit, 1)
	if units > h.maxUnits {
		return fmt.Errorf("histogram value %d out of range, max %d", v, h.maxUnits*h.unit)
	}
	if err := h.hdr.RecordValue(int64(units)); err != nil {
		return fmt.Errorf("record histogram value %d: %w", v, err)
	}
	h.max = max(h.max, units)
	return nil
}

func (h *Histogram) Count() uint64 {
	return uint64(h.hdr.TotalCount())
}

// ValueAtPercentile returns the smallest recorded value such that p percent
// of all samples are less than or equal to it.
func (h *Histogram) ValueAtPercentile(p float64) uint64 {
	if h.Count() == 0 {
		return 0
	}
	return min(uint64(h.hdr.ValueAtQuantile(p)), h.max) * h.unit
}

func (h *Histogram) Mean() float64 {
	if h.Count() == 0 {
		return 0
	}
	return h.hdr.Mean() * float64(h.unit)
}

func (h *Histogram) Max() uint64 {
	if h.Count() == 0 {
		return 0
	}
	return h.max * h.unit
}

// Snapshot returns the non-empty buckets in ascending value order.
func (h *Histogram) Snapshot() Distribution {
	if h.Count() == 0 {
		return nil
	}

	var dist Distribution
	for _, bar := range h.hdr.Distribution() {
		if bar.Count == 0 {
			continue
		}
		dist = append(dist, Bucket{
			Value: min(uint64(bar.To), h.max) * h.unit,
			Count: uint64(bar.Count),
		})
	}
	return dist
}

type Bucket struct {
	Value uint64
	Count uint64
}

// Distribution is a sorted list of histogram buckets.
type Distribution []Bucket

// CountBetween returns the number of samples with low <= value <= high.
func (d Distribution) CountBetween(low, high uint64) uint64 {
	if low > high {
		return 0
	}
	i := sort.Search(len(d), func(i int) bool { return d[i].Value >= low })
	var count uint64
	for ; i < len(d) && d[i].Value <= high; i++ {
		count += d[i].Count
	}
	return count
}

func (d Distribution) CountAt(v uint64) uint64 {
	return d.CountBetween(v, v)
}

func (d Distribution) Max() uint64 {
	if len(d) == 0 {
		return 0
	}
	return d[len(d)-1].Value
}
