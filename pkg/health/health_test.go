package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(_ context.Context) error { return nil }

func failing(err error) CheckFunc {
	return func(_ context.Context) error { return err }
}

func probeOf(t *testing.T, h *Health, readiness bool) *probe {
	t.Helper()
	h.mu.RLock()
	defer h.mu.RUnlock()
	probes := h.liveness
	if readiness {
		probes = h.readiness
	}
	require.Len(t, probes, 1)
	return probes[0]
}

func TestReadinessRequiresManualGate(t *testing.T) {
	h := New()
	assert.False(t, h.IsReady(), "fresh instance must not be ready")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestProbeUnhealthyAfterConsecutiveFailures(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, failing(errors.New("connection refused")))
	h.SetReady(true)

	p := probeOf(t, h, true)
	ctx := context.Background()

	// One or two failures are tolerated.
	p.observe(ctx)
	p.observe(ctx)
	assert.True(t, h.IsReady())

	p.observe(ctx)
	assert.False(t, h.IsReady(), "third consecutive failure flips the probe")
}

func TestProbeRecoversAfterSuccess(t *testing.T) {
	h := New()
	var fail bool
	h.AddReadinessCheck("db", time.Second, func(_ context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})
	h.SetReady(true)

	p := probeOf(t, h, true)
	ctx := context.Background()

	fail = true
	for range failuresBeforeUnhealthy {
		p.observe(ctx)
	}
	require.False(t, h.IsReady())

	fail = false
	p.observe(ctx)
	assert.True(t, h.IsReady(), "single success restores health")
}

func TestProbeTimeoutCountsAsFailure(t *testing.T) {
	h := New()
	h.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	p := probeOf(t, h, false)
	for range failuresBeforeUnhealthy {
		p.observe(context.Background())
	}

	ok, err := p.state()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestLiveEndpointReportsFailure(t *testing.T) {
	h := New()
	h.AddLivenessCheck("leak", time.Second, failing(errors.New("too many goroutines")))

	p := probeOf(t, h, false)
	for range failuresBeforeUnhealthy {
		p.observe(context.Background())
	}

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "too many goroutines", resp.Checks["leak"])
}

func TestReadyEndpointNotReady(t *testing.T) {
	h := New()

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks, "_readiness")
}

func TestStartObservesProbes(t *testing.T) {
	h := New()
	observed := make(chan struct{}, 1)
	h.AddReadinessCheck("db", time.Second, func(_ context.Context) error {
		select {
		case observed <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, time.Hour)
	defer h.Stop()

	select {
	case <-observed:
	case <-time.After(time.Second):
		t.Fatal("probe was not observed after Start")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.Start(context.Background(), time.Hour)
	h.Stop()
	h.Stop()
}
