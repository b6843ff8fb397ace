package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-rag/internal/vectormath"
)

func TestNewHashingEncoder(t *testing.T) {
	enc, err := NewHashingEncoder(384)
	require.NoError(t, err)
	assert.Equal(t, 384, enc.Dimension())
	assert.Equal(t, "hashing-trigram-v1-384", enc.Model())

	_, err = NewHashingEncoder(0)
	assert.Error(t, err)
}

func TestHashingEncoder_Encode(t *testing.T) {
	ctx := context.Background()
	enc, err := NewHashingEncoder(384)
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		a, err := enc.Encode(ctx, "Feijoada e um prato tipico brasileiro")
		require.NoError(t, err)
		b, err := enc.Encode(ctx, "Feijoada e um prato tipico brasileiro")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("unit length", func(t *testing.T) {
		v, err := enc.Encode(ctx, "Pizza napolitana tem massa fina")
		require.NoError(t, err)
		require.Len(t, v, 384)

		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	})

	t.Run("case insensitive", func(t *testing.T) {
		a, _ := enc.Encode(ctx, "FEIJOADA")
		b, _ := enc.Encode(ctx, "feijoada")
		assert.Equal(t, a, b)
	})

	t.Run("empty text is zero vector", func(t *testing.T) {
		v, err := enc.Encode(ctx, "")
		require.NoError(t, err)
		for _, x := range v {
			assert.Zero(t, x)
		}
	})

	t.Run("related text is closer than unrelated", func(t *testing.T) {
		q, _ := enc.Encode(ctx, "Feijoada")
		related, _ := enc.Encode(ctx, "Feijoada e um prato tipico brasileiro feito com feijao preto e carnes.")
		unrelated, _ := enc.Encode(ctx, "Salada Caesar e uma opcao leve para o jantar.")

		dRelated, err := vectormath.L2Distance(q, related)
		require.NoError(t, err)
		dUnrelated, err := vectormath.L2Distance(q, unrelated)
		require.NoError(t, err)
		assert.Less(t, dRelated, dUnrelated)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := enc.Encode(cctx, "sopa")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHashingEncoder_EncodeBatchMatchesEncode(t *testing.T) {
	ctx := context.Background()
	enc, err := NewHashingEncoder(64)
	require.NoError(t, err)

	texts := []string{"sopa de legumes", "lasanha a bolonhesa", ""}
	batch, err := enc.EncodeBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := enc.Encode(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}
