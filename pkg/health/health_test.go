package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, handler http.HandlerFunc, path string) (int, probeBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body probeBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		runs       int
		check      CheckFunc
		wantStatus int
		wantChecks map[string]string
	}{
		{name: "passing", runs: 1, check: passing(), wantStatus: http.StatusOK},
		{name: "below threshold", runs: 2, check: failing("temporary"), wantStatus: http.StatusOK},
		{
			name:       "failing",
			runs:       3,
			check:      failing("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"catalog": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("catalog", time.Second, tt.check)
			runN(h.liveness[0], tt.runs)

			status, body := probe(t, h.LiveEndpoint, "/livez")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantChecks, body.Checks)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ok", body.Status)
			} else {
				assert.Equal(t, "unhealthy", body.Status)
			}
		})
	}
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	status, body := probe(t, New().LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passing())
	h.AddReadinessCheck("file", time.Second, failing("missing"))

	status, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, map[string]string{"_readiness": "service is not ready"}, body.Checks)

	h.SetReady(true)
	status, _ = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, status)

	runN(h.readiness[1], DefaultFailureThreshold)
	status, body = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, map[string]string{"file": "missing"}, body.Checks)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passing())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckOptions(t *testing.T) {
	down := true
	fn := func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	}

	h := New()
	h.AddReadinessCheck("flaky", time.Second, fn,
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithInitiallyUnhealthy(),
	)
	c := h.readiness[0]
	assert.Equal(t, "check is unhealthy", c.failure())

	runN(c, 1)
	assert.Equal(t, "down", c.failure())

	down = false
	runN(c, 1)
	assert.NotEmpty(t, c.failure(), "one success is not enough")
	runN(c, 1)
	assert.Empty(t, c.failure())

	// Non-positive thresholds keep the defaults.
	h.AddLivenessCheck("defaults", time.Second, passing(), WithFailureThreshold(0), WithSuccessThreshold(-1))
	assert.Equal(t, DefaultFailureThreshold, h.liveness[0].failureThreshold)
	assert.Equal(t, DefaultSuccessThreshold, h.liveness[0].successThreshold)
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithFailureThreshold(1))

	runN(h.liveness[0], 1)
	assert.Contains(t, h.liveness[0].failure(), "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flag", time.Second, failing("boom"), WithFailureThreshold(1))

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool {
		status, _ := probe(t, h.LiveEndpoint, "/livez")
		return status == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, failing("err"))
	h.AddReadinessCheck("ready", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

// --- Checkers ---

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, PingCheck(fakePinger{})(ctx))

	err := PingCheck(fakePinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestFileCheck(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	full := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(full, []byte(`[]`), 0o600))
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	assert.NoError(t, FileCheck(full)(ctx))
	assert.Error(t, FileCheck(empty)(ctx))
	assert.Error(t, FileCheck(dir)(ctx))
	assert.Error(t, FileCheck(filepath.Join(dir, "missing.json"))(ctx))
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
