package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vattention/facio-superpowers/internal/logging"
	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/server/internal/auth"
	"github.com/vattention/facio-superpowers/server/internal/database"
	"github.com/vattention/facio-superpowers/server/internal/metrics"
	"github.com/vattention/facio-superpowers/server/internal/middleware"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type testServer struct {
	db      *database.DB
	handler http.Handler
	key     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	record, plain, err := auth.GenerateAPIKey("team")
	require.NoError(t, err)
	require.NoError(t, db.CreateAPIKey(record))

	logger := logging.Discard()
	h := New(db, metrics.NewCollector(), logger)
	h.now = func() time.Time { return fixedNow }

	return &testServer{
		db:      db,
		handler: Router(h, auth.NewMiddleware(db, logger), middleware.NewIPRateLimiter(rate.Inf, 1), logger),
		key:     plain,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func usage(ts time.Time, modelName, op string, cost float64) model.UsageRecord {
	return model.UsageRecord{
		Timestamp:    ts,
		Model:        modelName,
		Operation:    op,
		InputTokens:  1000,
		OutputTokens: 500,
		Cost:         cost,
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAPIRequiresKey(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/sync/status?client_id=c1", "/api/stats?period=all"} {
		rec := s.do(t, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	}
}

func TestSyncFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/sync/status?client_id=c1", nil, s.key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[model.SyncStatusResponse](t, rec).LastSyncAt)

	first := fixedNow.Add(-2 * time.Hour)
	second := fixedNow.Add(-time.Hour)
	req := model.SyncRequest{
		ClientID:   "c1",
		ClientName: "laptop",
		Records: []model.UsageRecord{
			usage(first, "sonnet", "code-gen", 0.0105),
			usage(second, "haiku", "review", 0.002),
			{Model: "sonnet"}, // no timestamp
		},
	}

	rec = s.do(t, http.MethodPost, "/api/sync", req, s.key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[model.SyncResponse](t, rec)
	assert.True(t, resp.Success)
	assert.EqualValues(t, 2, resp.Inserted)

	// resending the same batch inserts nothing
	rec = s.do(t, http.MethodPost, "/api/sync", req, s.key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[model.SyncResponse](t, rec).Inserted)

	rec = s.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `facio_costs_server_sync_records_total{result="inserted"} 2`)
	assert.Contains(t, rec.Body.String(), `facio_costs_server_sync_records_total{result="duplicate"} 2`)
	assert.Contains(t, rec.Body.String(), `facio_costs_server_sync_records_total{result="invalid"} 2`)

	rec = s.do(t, http.MethodGet, "/api/sync/status?client_id=c1", nil, s.key)
	status := decode[model.SyncStatusResponse](t, rec)
	require.NotNil(t, status.LastSyncAt)
	assert.True(t, second.Equal(*status.LastSyncAt))
}

func TestSyncAcceptsLateRecordBehindMark(t *testing.T) {
	s := newTestServer(t)

	mark := fixedNow.Add(-time.Hour)
	batch := []model.UsageRecord{usage(mark, "sonnet", "code-gen", 0.5)}
	rec := s.do(t, http.MethodPost, "/api/sync", model.SyncRequest{ClientID: "c1", Records: batch}, s.key)
	require.Equal(t, http.StatusOK, rec.Code)

	// the client re-sends its lookback window plus a record stamped before the mark
	batch = append(batch, usage(mark.Add(-time.Minute), "haiku", "review", 0.1))
	rec = s.do(t, http.MethodPost, "/api/sync", model.SyncRequest{ClientID: "c1", Records: batch}, s.key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[model.SyncResponse](t, rec).Inserted)

	rec = s.do(t, http.MethodGet, "/api/sync/status?client_id=c1", nil, s.key)
	status := decode[model.SyncStatusResponse](t, rec)
	require.NotNil(t, status.LastSyncAt)
	assert.True(t, mark.Equal(*status.LastSyncAt))
}

func TestSyncValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/sync", model.SyncRequest{}, s.key)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "client_id is required")

	rec = s.do(t, http.MethodPost, "/api/sync", model.SyncRequest{ClientID: "c1"}, s.key)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No records to sync")

	raw := httptest.NewRequest(http.MethodPost, "/api/sync", bytes.NewBufferString("{not json"))
	raw.Header.Set("X-API-Key", s.key)
	out := httptest.NewRecorder()
	s.handler.ServeHTTP(out, raw)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestSyncRejectsClientOfAnotherKey(t *testing.T) {
	s := newTestServer(t)

	req := model.SyncRequest{ClientID: "shared", Records: []model.UsageRecord{usage(fixedNow, "sonnet", "x", 1)}}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/sync", req, s.key).Code)

	other, plain, err := auth.GenerateAPIKey("other team")
	require.NoError(t, err)
	require.NoError(t, s.db.CreateAPIKey(other))

	rec := s.do(t, http.MethodPost, "/api/sync", req, plain)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t)

	sync := func(clientID string, records ...model.UsageRecord) {
		rec := s.do(t, http.MethodPost, "/api/sync", model.SyncRequest{ClientID: clientID, Records: records}, s.key)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	sync("c1",
		usage(fixedNow.Add(-time.Hour), "sonnet", "code-gen", 0.5),
		usage(fixedNow.AddDate(0, 0, -20), "sonnet", "code-gen", 4),
	)
	sync("c2", usage(fixedNow.Add(-2*time.Hour), "haiku", "review", 0.25))

	rec := s.do(t, http.MethodGet, "/api/stats?period=day", nil, s.key)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[model.TeamStats](t, rec)
	assert.Equal(t, "day", day.Period)
	assert.Equal(t, 2, day.Clients)
	assert.Equal(t, 2, day.Stats.TotalCalls)
	assert.InDelta(t, 0.75, day.Stats.TotalCost, 1e-9)
	require.Contains(t, day.Stats.ByModel, "haiku")
	assert.Equal(t, 1, day.Stats.ByModel["haiku"].Calls)

	rec = s.do(t, http.MethodGet, "/api/stats?period=all", nil, s.key)
	all := decode[model.TeamStats](t, rec)
	assert.Equal(t, 3, all.Stats.TotalCalls)
	assert.InDelta(t, 4.75, all.Stats.TotalCost, 1e-9)

	rec = s.do(t, http.MethodGet, "/api/stats?period=year", nil, s.key)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRateLimited(t *testing.T) {
	s := newTestServer(t)
	logger := logging.Discard()
	h := New(s.db, metrics.NewCollector(), logger)
	limited := Router(h, auth.NewMiddleware(s.db, logger), middleware.NewIPRateLimiter(0, 1), logger)

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// health is never limited
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
