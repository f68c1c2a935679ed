package adminapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskresolve/duskresolve/internal/adminapi"
	"github.com/duskresolve/duskresolve/internal/store"
)

func newTestServer(t *testing.T) *adminapi.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "admin-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return adminapi.New("127.0.0.1:0", "", st)
}

func TestCreateRecord_Success(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"name":  "example.com",
		"type":  "A",
		"ttl":   300,
		"rdata": "10.0.0.1",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/record", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp["name"])
	assert.Equal(t, "A", resp["type"])
	assert.Equal(t, "10.0.0.1", resp["rdata"])
	assert.NotEmpty(t, resp["id"])
}

func TestCreateRecord_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/record", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRecord_InvalidRecordMapsToBadRequest(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"name":  "example.com",
		"type":  "A",
		"rdata": "not-an-ip",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/record", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRecords(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]any{
		{"name": "a.example.com", "type": "A", "rdata": "10.0.0.1"},
		{"name": "b.example.com", "type": "A", "rdata": "10.0.0.2"},
	} {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/admin/record", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/records", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	assert.Len(t, recs, 2)
}

func TestDeleteRecord_Success(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"name": "gone.example.com", "type": "A", "rdata": "10.0.0.1"})
	req := httptest.NewRequest(http.MethodPost, "/admin/record", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/admin/record/gone.example.com", nil)
	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteRecord_NotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/admin/record/nowhere.example.com", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
