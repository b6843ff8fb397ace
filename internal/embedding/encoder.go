// Package embedding turns normalized text into fixed-length vectors.
package embedding

import "context"

// Encoder maps text to embedding vectors. Implementations are constructed once
// per process and are safe for concurrent use.
type Encoder interface {
	// Encode embeds a single text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch embeds texts and returns vectors in input order. It is
	// equivalent to calling Encode for each element.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model; stored next to every document.
	Model() string

	// Dimension is the length of every vector returned.
	Dimension() int
}
