package repositories

import (
	"math"

	"github.com/upb/recipe-rag/models"
)

// Index sizing bounds for IVFFlat.
const (
	MaxIVFLists          = 32768
	sqrtListsThreshold   = 1_000_000
	rowsPerListSmallData = 1000

	// DefaultReindexGrowth rebuilds the index once the table has doubled.
	DefaultReindexGrowth = 2.0
)

// RecommendedLists returns the IVFFlat list count for a table of rows rows:
// rows/1000 up to a million rows and sqrt(rows) beyond, clamped to
// [1, MaxIVFLists].
func RecommendedLists(rows int64) int {
	var lists int
	if rows <= sqrtListsThreshold {
		lists = int(rows / rowsPerListSmallData)
	} else {
		lists = int(math.Sqrt(float64(rows)))
	}
	if lists < 1 {
		return 1
	}
	if lists > MaxIVFLists {
		return MaxIVFLists
	}
	return lists
}

// NeedsReindex reports whether the clustering recorded in state is stale for a
// table that now holds rows rows. A missing state always needs a build.
func NeedsReindex(state *models.IndexState, rows int64, growth float64) bool {
	if state == nil {
		return true
	}
	if growth <= 1 {
		growth = DefaultReindexGrowth
	}
	if state.RowCount <= 0 {
		return rows > 0
	}
	return float64(rows) >= growth*float64(state.RowCount)
}
