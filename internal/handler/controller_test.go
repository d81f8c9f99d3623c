package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexnow-go/pkg/audit"
)

type fakeAudit struct {
	entries    []audit.Entry
	readErr    error
	rotated    string
	rotateErr  error
	statsLimit int
}

func (f *fakeAudit) GetStatistics(limit int) audit.Statistics {
	f.statsLimit = limit
	return audit.ComputeStatistics(f.entries)
}

func (f *fakeAudit) RecentEntries(limit int) ([]audit.Entry, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if limit > 0 && limit < len(f.entries) {
		return f.entries[len(f.entries)-limit:], nil
	}
	return f.entries, nil
}

func (f *fakeAudit) RotateLogFile() (string, error) { return f.rotated, f.rotateErr }
func (f *fakeAudit) Path() string                  { return "logs/indexnow-submissions.json" }

type fakeTracker struct {
	count int
	err   error
}

func (f fakeTracker) Count(context.Context) (int, error) { return f.count, f.err }

func newTestController(a *fakeAudit, tr *fakeTracker, metrics http.Handler) *Controller {
	cfg := ControllerConfig{Audit: a, Metrics: metrics}
	if tr != nil {
		cfg.Tracker = *tr
	}
	c := NewController(cfg)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func do(t *testing.T, c *Controller, method, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := NewApp(c).Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func sampleEntries() []audit.Entry {
	return []audit.Entry{
		{Timestamp: "2024-05-01T10:00:00.000Z", URLCount: 4, Success: true, StatusCode: 200},
		{Timestamp: "2024-05-01T11:00:00.000Z", URLCount: 2, StatusCode: 429, Error: "Rate limit exceeded"},
	}
}

func TestHealth(t *testing.T) {
	resp, body := do(t, newTestController(&fakeAudit{}, &fakeTracker{count: 12}, nil), "GET", "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "2024-05-01T12:00:00Z", got.Timestamp)
	assert.Equal(t, "logs/indexnow-submissions.json", got.AuditLog)
	require.NotNil(t, got.TrackedURLs)
	assert.Equal(t, 12, *got.TrackedURLs)
}

func TestHealth_TrackerFailureDegrades(t *testing.T) {
	_, body := do(t, newTestController(&fakeAudit{}, &fakeTracker{err: errors.New("corrupt")}, nil), "GET", "/health")

	var got HealthResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Nil(t, got.TrackedURLs)
}

func TestStats(t *testing.T) {
	fa := &fakeAudit{entries: sampleEntries()}
	resp, body := do(t, newTestController(fa, nil, nil), "GET", "/api/v1/stats?limit=25")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 25, fa.statsLimit)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, float64(2), got["totalSubmissions"])
	assert.Equal(t, 0.5, got["successRate"])
	assert.Equal(t, float64(3), got["averageUrlCount"])
	assert.Equal(t, "2024-05-01T10:00:00.000Z", got["lastSuccessfulSubmission"])
}

func TestStats_DefaultLimit(t *testing.T) {
	fa := &fakeAudit{}
	resp, body := do(t, newTestController(fa, nil, nil), "GET", "/api/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, fa.statsLimit)
	assert.Contains(t, string(body), `"lastSuccessfulSubmission":null`)
}

func TestStats_InvalidLimit(t *testing.T) {
	for _, limit := range []string{"abc", "0", "-3", "1001"} {
		t.Run(limit, func(t *testing.T) {
			resp, body := do(t, newTestController(&fakeAudit{}, nil, nil), "GET", "/api/v1/stats?limit="+limit)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), "limit must be an integer")
		})
	}
}

func TestSubmissions(t *testing.T) {
	resp, body := do(t, newTestController(&fakeAudit{entries: sampleEntries()}, nil, nil), "GET", "/api/v1/submissions?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SubmissionsResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 429, got.Entries[0].StatusCode)
}

func TestSubmissions_ReadError(t *testing.T) {
	resp, body := do(t, newTestController(&fakeAudit{readErr: errors.New("permission denied")}, nil, nil), "GET", "/api/v1/submissions")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "failed to read audit log")
	assert.NotContains(t, string(body), "permission denied")
}

func TestRotate(t *testing.T) {
	resp, body := do(t, newTestController(&fakeAudit{rotated: "logs/indexnow-submissions-1.json"}, nil, nil), "POST", "/api/v1/rotate")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got RotateResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Rotated)
	assert.Equal(t, "logs/indexnow-submissions-1.json", got.RotatedFile)

	_, body = do(t, newTestController(&fakeAudit{}, nil, nil), "POST", "/api/v1/rotate")
	assert.JSONEq(t, `{"rotated":false}`, string(body))

	resp, _ = do(t, newTestController(&fakeAudit{rotateErr: errors.New("busy")}, nil, nil), "POST", "/api/v1/rotate")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("indexnow_batches_total 3\n"))
	})

	resp, body := do(t, newTestController(&fakeAudit{}, nil, metrics), "GET", "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "indexnow_batches_total 3\n", string(body))

	resp, _ = do(t, newTestController(&fakeAudit{}, nil, nil), "GET", "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
