package prop

import (
	"math"
	"math/rand/v2"
	"time"
)

type BoolValue struct {
	propTrue float64
}

func Bool(propTrue float64) BoolValue {
	return BoolValue{propTrue: propTrue}
}

func (b BoolValue) Next() bool                 { return b.GetWithProp(rand.Float64()) }
func (b BoolValue) Rand(r *rand.Rand) bool     { return b.GetWithProp(r.Float64()) }
func (b BoolValue) GetWithProp(p float64) bool { return p < b.propTrue }

type WeightedValue[T any] struct {
	total  float64
	weight []float64
	values []T
}

func WeightedOf[T any](values []T, weight func(int) float64) WeightedValue[T] {
	w := make([]float64, len(values))
	total := 0.0
	for i := range values {
		w[i] = weight(i)
		total += w[i]
	}
	return WeightedValue[T]{weight: w, values: values, total: total}
}

func (wv *WeightedValue[T]) Add(value T, weight float64) {
	wv.values = append(wv.values, value)
	wv.weight = append(wv.weight, weight)
	wv.total += weight
}

func (wv *WeightedValue[T]) Rand(r *rand.Rand) T { return wv.GetWithProp(r.Float64()) }
func (wv *WeightedValue[T]) Next() T             { return wv.GetWithProp(rand.Float64()) }
func (wv *WeightedValue[T]) GetWithProp(p float64) T {
	weight := p * wv.total
	for i, w := range wv.weight {
		weight -= w
		if weight < 0 {
			return wv.values[i]
		}
	}
	return wv.values[len(wv.values)-1]
}

// ExponentialDurationValue draws durations from an exponential distribution,
// truncated at max (no truncation if max is 0).
type ExponentialDurationValue struct {
	mean time.Duration
	max  time.Duration
}

func ExponentialDuration(mean, max time.Duration) ExponentialDurationValue {
	return ExponentialDurationValue{mean: mean, max: max}
}

func (e ExponentialDurationValue) Next() time.Duration { return e.GetWithProp(rand.Float64()) }
func (e ExponentialDurationValue) Rand(r *rand.Rand) time.Duration {
	return e.GetWithProp(r.Float64())
}

func (e ExponentialDurationValue) GetWithProp(p float64) time.Duration {
	if p <= 0 {
		p = math.SmallestNonzeroFloat64
	}
	v := time.Duration(-math.Log(p) * float64(e.mean))
	if e.max > 0 && v > e.max {
		return e.max
	}
	return v
}

type UniformJitterDurationValue struct {
	avg    time.Duration
	jitter time.Duration
}

func UniformJitterDuration(avg, jitter time.Duration) UniformJitterDurationValue {
	return UniformJitterDurationValue{avg: avg, jitter: jitter}
}

func (j UniformJitterDurationValue) Next() time.Duration { return j.GetWithProp(rand.Float64()) }
func (j UniformJitterDurationValue) Rand(r *rand.Rand) time.Duration {
	return j.GetWithProp(r.Float64())
}

// GetWithProp maps p in [0, 1) onto [avg-jitter, avg+jitter).
func (j UniformJitterDurationValue) GetWithProp(p float64) time.Duration {
	v := j.avg + time.Duration((2*p-1)*float64(j.jitter))
	if v < 0 {
		return 0
	}
	return v
}
