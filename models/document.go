package models

import "time"

// EmbeddingDimension is the fixed vector length of every stored embedding.
const EmbeddingDimension = 384

// NewDocument is an input row for batch insertion. The store assigns the ID.
type NewDocument struct {
	Content   string
	Embedding []float32
}

// QueryResult is one row of a nearest-neighbor answer. It lives only for the
// duration of a request.
type QueryResult struct {
	ID       int64   `json:"id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// IndexState records how the approximate index was last built.
type IndexState struct {
	Name     string    `json:"name" db:"name"`
	Lists    int       `json:"lists" db:"lists"`
	RowCount int64     `json:"row_count" db:"row_count"`
	Metric   string    `json:"metric" db:"metric"`
	BuiltAt  time.Time `json:"built_at" db:"built_at"`
}

// StoreStats summarizes the collection for the stats endpoint.
type StoreStats struct {
	Documents      int64       `json:"documents"`
	EmbeddingModel string      `json:"embedding_model"`
	StaleDocuments int64       `json:"stale_documents"`
	Backend        string      `json:"backend"`
	Index          *IndexState `json:"index,omitempty"`
}
