package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDatabase struct {
	pingErr      error
	shuttingDown bool
}

func (f *fakeDatabase) Ping(context.Context) error { return f.pingErr }
func (f *fakeDatabase) IsShuttingDown() bool       { return f.shuttingDown }

type fakeCounter struct{ n int }

func (f *fakeCounter) Count() int { return f.n }

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	rec := doGet(t, Handler(&fakeDatabase{}, &fakeCounter{}), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, jsonStd.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
}

func TestReadinessHealthy(t *testing.T) {
	rec := doGet(t, Handler(&fakeDatabase{}, &fakeCounter{n: 3}), "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, jsonStd.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Details["database"])
	assert.Equal(t, "3", resp.Details["live_subscribers"])
}

func TestReadinessDatabaseUnavailable(t *testing.T) {
	dbm := &fakeDatabase{pingErr: errors.New("connection refused")}
	rec := doGet(t, Handler(dbm, &fakeCounter{}), "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, jsonStd.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Details["database"])
}

func TestReadinessDuringShutdown(t *testing.T) {
	dbm := &fakeDatabase{shuttingDown: true}
	rec := doGet(t, Handler(dbm, &fakeCounter{}), "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, jsonStd.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "shutting down", resp.Details["database"])
}
