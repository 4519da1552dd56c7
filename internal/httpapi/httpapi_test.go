package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"loglite/internal/idgen"
	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/internal/writer"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(dir + "/events.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx, err := search.Open(dir + "/idx.bleve")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	apps := store.NewAppStore(db)
	sources := store.NewSourceStore(db)
	events := store.NewEventStore(db)
	w := writer.New(idgen.New(1), apps, events, idx)

	return New(apps, sources, events, idx, w, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthReturnsOK(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAppThenDuplicateConflicts(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/apps", map[string]string{"name": "My App"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/apps", map[string]string{"name": "My App"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/apps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
}

func TestSourceCRUD(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	doJSON(t, h, http.MethodPost, "/api/apps", map[string]string{"name": "app1"})

	rec := doJSON(t, h, http.MethodPost, "/api/sources", map[string]interface{}{
		"app_id": store.Slugify("app1"),
		"path":   "/var/log/app1.log",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := int64(created["id"].(float64))

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/sources/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/api/sources/%d", id), map[string]interface{}{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, false, updated["enabled"])

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/sources/%d", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/sources/%d", id), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestJSONThenSearchRoundTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/ingest", map[string]interface{}{
		"app_id": "app1",
		"events": []map[string]interface{}{
			{"message": "connection refused ERROR"},
			{"message": "all good"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Accepted)

	rec = doJSON(t, h, http.MethodPost, "/api/search", map[string]interface{}{
		"app_id": "app1",
		"q":      "ERROR",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var sr searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sr))
	require.Equal(t, 1, sr.Total)
	require.Len(t, sr.Items, 1)
	require.Equal(t, "connection refused ERROR", sr.Items[0].Message)
}

func TestIngestTextAutoDetectsJava(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	body := "2024-02-09 22:30:15.123 ERROR [main] com.example.App - Connection failed\n"
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/auto?app_id=app1", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Accepted)
}

func TestSearchWithNoMatchesReturns200(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/search", map[string]interface{}{"app_id": "nope"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sr searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sr))
	require.Equal(t, 0, sr.Total)
	require.Empty(t, sr.Items)
}
