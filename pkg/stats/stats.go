package stats

import (
	"iter"
	"slices"
	"sort"
)

// Quantize rounds d up to the next multiple of interval. Zero is attributed
// to the first interval boundary.
func Quantize(d, interval uint64) uint64 {
	if interval == 0 {
		return d
	}
	if d == 0 {
		return interval
	}
	return (d + interval - 1) / interval * interval
}

func SliceAverageFunc[T any](items []T, fn func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	return SlicesSumOfFunc(items, fn) / float64(len(items))
}

func SlicesMedianOf[T any](summaries []T, selector func(T) float64) float64 {
	if len(summaries) == 0 {
		return 0
	}
	values := make([]float64, len(summaries))
	for i, summary := range summaries {
		values[i] = selector(summary)
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}

func SlicesSumOfFunc[T any](items []T, fn func(T) float64) float64 {
	return SumOfFunc(slices.Values(items), fn)
}

func SumOfFunc[T any](in iter.Seq[T], fn func(T) float64) float64 {
	sum := 0.0
	correction := 0.0 // Correction term for reducing floating-point errors

	for item := range in {
		y := fn(item) - correction
		t := sum + y
		correction = (t - sum) - y
		sum = t
	}

	return sum
}
