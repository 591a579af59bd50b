package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriys/lastgood/internal/config"
	"github.com/oriys/lastgood/internal/errorlog"
	"github.com/oriys/lastgood/internal/fallback"
	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/output"
	"github.com/oriys/lastgood/internal/storage"
)

func newTestApp(t *testing.T, backend *storage.Memory) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = storage.DriverMemory
	errs := errorlog.NewRecorder(0)
	return &app{
		cfg:     cfg,
		backend: backend,
		store:   fallback.New(fallback.WithBackend(backend), fallback.WithSink(errs)),
		errs:    errs,
		printer: output.NewPrinter(output.FormatJSON),
	}
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestInspector_SnapshotLifecycle(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	h := newHandler(a)

	rec := do(t, h, http.MethodGet, "/snapshot", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no fallback data", decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodPut, "/snapshot?src=x", "application/json", `[{"a":1}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody(t, rec)
	assert.Equal(t, true, st["has_data"])
	assert.Equal(t, float64(1), st["records"])
	assert.Equal(t, "memory", st["driver"])

	rec = do(t, h, http.MethodGet, "/snapshot", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	snap := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"src": "x"}, snap["metadata"])
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, snap["records"])
	assert.Equal(t, true, snap["fresh"])

	rec = do(t, h, http.MethodDelete, "/snapshot", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/snapshot", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, a.backend.(*storage.Memory).Len())
}

func TestInspector_PutCSV(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	h := newHandler(a)

	rec := do(t, h, http.MethodPut, "/snapshot", "text/csv; charset=utf-8", "name,price\nalpha,12\n")
	require.Equal(t, http.StatusOK, rec.Code)

	d, ok := a.store.Read(context.Background())
	require.True(t, ok)
	assert.Equal(t, []map[string]any{{"name": "alpha", "price": "12"}}, d.Records)
	assert.Nil(t, d.Metadata)
}

func TestInspector_PutInvalidBody(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	h := newHandler(a)

	rec := do(t, h, http.MethodPut, "/snapshot", "application/json", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "decode json records")
	assert.False(t, a.store.HasData(context.Background()))
}

func TestInspector_Status(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	h := newHandler(a)

	rec := do(t, h, http.MethodGet, "/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody(t, rec)
	assert.Equal(t, false, st["has_data"])
	assert.Equal(t, float64(-1), st["age_minutes"])
	assert.Equal(t, true, st["persistent"])
	assert.Equal(t, "fallback_data", st["key"])
}

func TestInspector_Errors(t *testing.T) {
	backend := storage.NewMemory()
	a := newTestApp(t, backend)
	h := newHandler(a)

	rec := do(t, h, http.MethodGet, "/errors", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	backend.FailSet(errors.New("quota exceeded"))
	rec = do(t, h, http.MethodPut, "/snapshot", "application/json", `[{"a":1}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["has_data"], "memory slot still serves")

	rec = do(t, h, http.MethodGet, "/errors", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []output.ErrorEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, fallback.Source, entries[0].Source)
	assert.Equal(t, "storage", entries[0].Kind)
	assert.Equal(t, "Failed to save fallback data", entries[0].Message)
	assert.Equal(t, "quota exceeded", entries[0].Error)
}

func TestInspector_Healthz(t *testing.T) {
	backend := storage.NewMemory()
	h := newHandler(newTestApp(t, backend))

	rec := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	require.NoError(t, backend.Close())
	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInspector_HealthzMemoryOnly(t *testing.T) {
	a := newTestApp(t, storage.NewMemory())
	a.backend = nil
	a.store = fallback.New(fallback.WithSink(a.errs))

	rec := do(t, newHandler(a), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInspector_Metrics(t *testing.T) {
	metrics.InitPrometheus("lastgood", nil)
	h := newHandler(newTestApp(t, storage.NewMemory()))

	do(t, h, http.MethodPut, "/snapshot", "application/json", `[{"a":1}]`)
	do(t, h, http.MethodGet, "/snapshot", "", "")

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "lastgood_writes_total 1")
	assert.Contains(t, body, `lastgood_reads_total{tier="memory"}`)
}

func TestInspector_MethodNotAllowed(t *testing.T) {
	h := newHandler(newTestApp(t, storage.NewMemory()))
	rec := do(t, h, http.MethodPost, "/status", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStorageErr(t *testing.T) {
	backend := storage.NewMemory()
	a := newTestApp(t, backend)
	assert.NoError(t, a.storageErr("write"))

	quota := errors.New("quota exceeded")
	backend.FailSet(quota)
	a.store.Write(context.Background(), []map[string]any{{"a": 1}}, nil)

	err := a.storageErr("write")
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, "write: Failed to save fallback data: quota exceeded", err.Error())
}
