package vectormath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	for _, s := range []string{"l2", "cosine", "inner_product"} {
		m, err := ParseMetric(s)
		require.NoError(t, err)
		assert.Equal(t, Metric(s), m)
	}

	_, err := ParseMetric("manhattan")
	assert.Error(t, err)
}

func TestDistance(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	t.Run("l2", func(t *testing.T) {
		d, err := Distance(MetricL2, a, b)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt2, d, 1e-9)
	})

	t.Run("cosine orthogonal", func(t *testing.T) {
		d, err := Distance(MetricCosine, a, b)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, d, 1e-9)
	})

	t.Run("cosine identical", func(t *testing.T) {
		d, err := Distance(MetricCosine, a, a)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, d, 1e-9)
	})

	t.Run("inner product is negated", func(t *testing.T) {
		d, err := Distance(MetricInnerProduct, []float32{1, 2}, []float32{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, -11.0, d, 1e-9)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		for _, m := range []Metric{MetricL2, MetricCosine, MetricInnerProduct} {
			_, err := Distance(m, a, []float32{1})
			assert.Error(t, err, "metric %s", m)
		}
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := Distance(Metric("hamming"), a, b)
		assert.Error(t, err)
	})
}

func TestCosineDistance_ZeroVector(t *testing.T) {
	d, err := CosineDistance([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestEncodeDecodeFloat32(t *testing.T) {
	v := []float32{0.5, -1.25, 3, float32(math.Pi)}

	got, err := DecodeFloat32(EncodeFloat32(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeFloat32([]byte{1, 2, 3})
	assert.Error(t, err)
}
