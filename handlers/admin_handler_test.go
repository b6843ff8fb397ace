package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/recipe-rag/models"
	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/services/ingestion"
	"go.uber.org/zap"
)

// MockIngester is a mock implementation of Ingester
type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, texts []string) (*ingestion.Report, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingestion.Report), args.Error(1)
}

func (m *MockIngester) MaintainIndex(ctx context.Context, force bool) (*models.IndexState, bool, error) {
	args := m.Called(ctx, force)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.IndexState), args.Bool(1), args.Error(2)
}

func TestHandleIngest(t *testing.T) {
	logger := zap.NewNop()

	t.Run("stores the batch", func(t *testing.T) {
		ingester := new(MockIngester)
		report := &ingestion.Report{
			BatchID:   uuid.New(),
			IDs:       []int64{11, 12},
			Model:     "all-MiniLM-L6-v2",
			Documents: 2,
		}
		ingester.On("Ingest", mock.Anything, []string{"Pao de queijo", "Brigadeiro"}).Return(report, nil)

		w := post(NewAdminHandler(ingester, logger).HandleIngest, "/admin/documents",
			`{"documents":["Pao de queijo","Brigadeiro"]}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, []interface{}{float64(11), float64(12)}, data["ids"])
		assert.Equal(t, report.BatchID.String(), data["batch_id"])
	})

	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"documents":[]}`},
		{"missing field", `{}`},
		{"empty element", `{"documents":["ok",""]}`},
		{"wrong type", `{"documents":"ok"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := new(MockIngester)

			w := post(NewAdminHandler(ingester, logger).HandleIngest, "/admin/documents", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			ingester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
		})
	}

	t.Run("document blank after normalization is a 400", func(t *testing.T) {
		ingester := new(MockIngester)
		ingester.On("Ingest", mock.Anything, []string{"ok", "寿司"}).
			Return(nil, services.Wrap(services.ErrEmptyDocument, nil).WithDetail("index", 1))

		w := post(NewAdminHandler(ingester, logger).HandleIngest, "/admin/documents", `{"documents":["ok","寿司"]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "bad_request", response["error"])
		assert.Equal(t, map[string]interface{}{"index": float64(1)}, response["details"])
	})

	t.Run("ingestion failure is a 500", func(t *testing.T) {
		ingester := new(MockIngester)
		ingester.On("Ingest", mock.Anything, []string{"x"}).
			Return(nil, services.Wrap(services.ErrIngestion, errors.New("embedding server down")))

		w := post(NewAdminHandler(ingester, logger).HandleIngest, "/admin/documents", `{"documents":["x"]}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "embedding server down")
	})
}

func TestHandleReindex(t *testing.T) {
	logger := zap.NewNop()

	t.Run("forces a rebuild", func(t *testing.T) {
		ingester := new(MockIngester)
		state := &models.IndexState{Name: "idx_documents_embedding", Lists: 2, RowCount: 2010, BuiltAt: time.Now()}
		ingester.On("MaintainIndex", mock.Anything, true).Return(state, true, nil)

		w := post(NewAdminHandler(ingester, logger).HandleReindex, "/admin/reindex", ``)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, true, data["reindexed"])
		index := data["index"].(map[string]interface{})
		assert.Equal(t, float64(2), index["lists"])
	})

	t.Run("exact backend reports no index", func(t *testing.T) {
		ingester := new(MockIngester)
		ingester.On("MaintainIndex", mock.Anything, true).Return(nil, false, nil)

		w := post(NewAdminHandler(ingester, logger).HandleReindex, "/admin/reindex", ``)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"reindexed":false}}`, w.Body.String())
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		ingester := new(MockIngester)
		ingester.On("MaintainIndex", mock.Anything, true).Return(nil, false, errors.New("lock timeout"))

		w := post(NewAdminHandler(ingester, logger).HandleReindex, "/admin/reindex", ``)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
