package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/upb/recipe-rag/internal/vectormath"
)

// HashingModel is the model tag stored for documents embedded by HashingEncoder.
const HashingModel = "hashing-trigram-v1"

const (
	wordWeight    = 2.0
	trigramWeight = 1.0
)

// HashingEncoder is a deterministic offline encoder based on signed
// feature hashing of words and padded character trigrams. It needs no model
// server, which makes it the fallback for local runs and tests.
type HashingEncoder struct {
	dim int
}

// NewHashingEncoder returns a HashingEncoder producing vectors of length dim.
func NewHashingEncoder(dim int) (*HashingEncoder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", dim)
	}
	return &HashingEncoder{dim: dim}, nil
}

// Model implements Encoder.
func (e *HashingEncoder) Model() string {
	return fmt.Sprintf("%s-%d", HashingModel, e.dim)
}

// Dimension implements Encoder.
func (e *HashingEncoder) Dimension() int {
	return e.dim
}

// Encode implements Encoder. The result is L2-normalized; empty input yields
// the zero vector.
func (e *HashingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dim)
	for _, word := range tokenize(text) {
		e.add(vec, "w:"+word, wordWeight)

		padded := " " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			e.add(vec, "c:"+padded[i:i+3], trigramWeight)
		}
	}
	vectormath.Normalize(vec)
	return vec, nil
}

// EncodeBatch implements Encoder.
func (e *HashingEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Encode(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding: text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashingEncoder) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ Encoder = (*HashingEncoder)(nil)
