// Package vectormath holds the distance functions shared by the exact
// search backend and the encoders.
package vectormath

import (
	"fmt"
	"math"
)

// Metric names a vector distance. Values match the DISTANCE_METRIC setting.
type Metric string

const (
	MetricL2           Metric = "l2"
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "inner_product"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricL2, MetricCosine, MetricInnerProduct:
		return m, nil
	}
	return "", fmt.Errorf("vectormath: unknown distance metric %q", s)
}

// Distance computes the distance between a and b under m. Smaller is closer
// for every metric, matching pgvector's <->, <=> and <#> operators.
func Distance(m Metric, a, b []float32) (float64, error) {
	switch m {
	case MetricL2:
		return L2Distance(a, b)
	case MetricCosine:
		return CosineDistance(a, b)
	case MetricInnerProduct:
		ip, err := InnerProduct(a, b)
		if err != nil {
			return 0, err
		}
		return -ip, nil
	}
	return 0, fmt.Errorf("vectormath: unknown distance metric %q", m)
}

// L2Distance computes the Euclidean distance between two vectors.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectormath: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// CosineDistance returns 1 - cosine similarity. A zero-magnitude vector is
// treated as maximally distant from everything.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectormath: cosine distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// InnerProduct returns the dot product of a and b.
func InnerProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectormath: inner product dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// Normalize scales v in place to unit length. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
