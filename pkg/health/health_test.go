package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probeStatus(t *testing.T, endpoint http.HandlerFunc) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w.Code, w.Body.String()
}

func runN(h *Health, n int) {
	for range n {
		for _, p := range h.probes {
			p.run(context.Background())
		}
	}
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("a", time.Second, passing)
		h.AddLivenessCheck("b", time.Second, passing)
		runN(h, 1)

		code, body := probeStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"status":"ok"}`, body)
	})

	t.Run("failing past threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("db", time.Second, failing("connection refused"))
		runN(h, 3)

		code, body := probeStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, body)
	})

	t.Run("failing below threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("flaky", time.Second, failing("temporary"))
		runN(h, 2)

		code, _ := probeStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("readiness checks are not reported", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, failing("down"))
		runN(h, 3)

		code, _ := probeStatus(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, passing)
		h.SetReady(true)

		code, body := probeStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"status":"ok"}`, body)
		assert.True(t, h.IsReady())
	})

	t.Run("not marked ready", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, passing)

		code, body := probeStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, body)
		assert.False(t, h.IsReady())
	})

	t.Run("failing check", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("catalog", time.Second, failing("503"))
		h.SetReady(true)
		runN(h, 3)

		code, body := probeStatus(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"catalog":"503"}}`, body)
		assert.False(t, h.IsReady())
	})
}

func TestProbe_Recovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	h := New()
	h.Add(Check{
		Name: "db",
		Kind: Readiness,
		Func: func(context.Context) error {
			if fail.Load() {
				return errors.New("down")
			}
			return nil
		},
		FailureThreshold: 1,
		SuccessThreshold: 2,
	})
	h.SetReady(true)

	runN(h, 1)
	require.False(t, h.IsReady())

	fail.Store(false)
	runN(h, 1)
	assert.False(t, h.IsReady(), "one success is below the threshold")
	code, body := probeStatus(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "check is unhealthy")

	runN(h, 1)
	assert.True(t, h.IsReady())
}

func TestProbe_Timeout(t *testing.T) {
	h := New()
	h.Add(Check{
		Name:             "slow",
		Kind:             Liveness,
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	runN(h, 1)

	code, body := probeStatus(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int64
	h := New()
	h.AddLivenessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingerFunc(passing))
	assert.NoError(t, ok(context.Background()))

	bad := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
