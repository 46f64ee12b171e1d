package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-odm/pkg/api"
	"github.com/adfharrison1/go-odm/pkg/domain"
	"github.com/adfharrison1/go-odm/pkg/odm"
	"github.com/adfharrison1/go-odm/pkg/storage"
)

func newTestRouter(t *testing.T) (*mux.Router, *odm.Registry) {
	t.Helper()

	engine := odm.NewEngine()
	db := storage.NewStorageEngine()
	registry := odm.NewRegistry(engine, db)
	registry.Register(&domain.ModelDescriptor{
		Collection: "users",
		Indexes: []domain.IndexSpec{
			{
				Keys:    []domain.IndexKey{{Field: "email", Type: domain.IndexAscending}},
				Options: domain.IndexOptions{Unique: true},
			},
		},
	})

	router := mux.NewRouter()
	api.NewHandler(registry, zerolog.Nop()).RegisterRoutes(router)
	return router, registry
}

func doRequest(router *mux.Router, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "GET", "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandleReadyGatesOnInitialization(t *testing.T) {
	router, registry := newTestRouter(t)

	rec := doRequest(router, "GET", "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, registry.InitializeAll(context.Background()))

	rec = doRequest(router, "GET", "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp api.ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
}

func TestHandleListModels(t *testing.T) {
	router, registry := newTestRouter(t)
	require.NoError(t, registry.InitializeAll(context.Background()))

	rec := doRequest(router, "GET", "/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []odm.ModelStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "users", statuses[0].Collection)
	assert.Equal(t, odm.ModelReady, statuses[0].State)
	require.NotNil(t, statuses[0].SyncReport)
	assert.Equal(t, []string{"email_1"}, statuses[0].SyncReport.Created)
}

func TestHandleGetModelNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "GET", "/models/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleGetIndexes(t *testing.T) {
	router, registry := newTestRouter(t)
	require.NoError(t, registry.InitializeAll(context.Background()))

	rec := doRequest(router, "GET", "/models/users/indexes")
	require.Equal(t, http.StatusOK, rec.Code)

	var indexes []api.IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &indexes))
	require.Len(t, indexes, 2)
	assert.Equal(t, domain.PrimaryKeyIndexName, indexes[0].Name)
	assert.Equal(t, "email_1", indexes[1].Name)
	assert.True(t, indexes[1].Unique)
}

func TestHandleSync(t *testing.T) {
	router, registry := newTestRouter(t)
	require.NoError(t, registry.InitializeAll(context.Background()))

	rec := doRequest(router, "POST", "/models/users/sync")
	require.Equal(t, http.StatusOK, rec.Code)

	// Everything already converged: a resync performs no mutations.
	var report domain.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Created)
	assert.Empty(t, report.Dropped)
	assert.Equal(t, []string{"email_1"}, report.Kept)
}

func TestHandleSyncUnknownModel(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, "POST", "/models/unknown/sync")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
