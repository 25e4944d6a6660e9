package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
)

// dependencyState переключает доступность зависимостей магазина в тестах.
type dependencyState struct {
	storage atomic.Bool
	kafka   atomic.Bool
	redis   atomic.Bool
}

func newDependencyState() *dependencyState {
	s := &dependencyState{}
	s.storage.Store(true)
	s.kafka.Store(true)
	s.redis.Store(true)
	return s
}

func pingFor(up *atomic.Bool, name string) func(context.Context) error {
	return func(context.Context) error {
		if up.Load() {
			return nil
		}
		return fmt.Errorf("%s is unreachable", name)
	}
}

// shopChecks повторяет набор проверок, который собирает New:
// хранилище критично, брокеры - нет.
func shopChecks(state *dependencyState) *healthcheck.Handler {
	checks := healthcheck.NewHandler("test")
	checks.RegisterChecker("storage", healthcheck.NewPingChecker("storage", true, pingFor(&state.storage, "storage")))
	checks.RegisterChecker("kafka", healthcheck.NewPingChecker("kafka", false, pingFor(&state.kafka, "kafka")))
	checks.RegisterChecker("redis", healthcheck.NewPingChecker("redis", false, pingFor(&state.redis, "redis")))
	return checks
}

func serveMetrics(t *testing.T, checks *healthcheck.Handler) (string, context.CancelFunc) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	startMetricsServer(ctx, addr, log.WithField("test", t.Name()), checks)

	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	return base, cancel
}

func fetch(t *testing.T, url string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestMetricsServer_ShopDependencyMatrix(t *testing.T) {
	tests := []struct {
		name        string
		down        func(*dependencyState)
		wantStatus  healthcheck.Status
		wantHealthz int
		wantReadyz  int
	}{
		{
			name:        "all dependencies up",
			down:        func(*dependencyState) {},
			wantStatus:  healthcheck.StatusHealthy,
			wantHealthz: http.StatusOK,
			wantReadyz:  http.StatusOK,
		},
		{
			name:        "redis outage only degrades",
			down:        func(s *dependencyState) { s.redis.Store(false) },
			wantStatus:  healthcheck.StatusDegraded,
			wantHealthz: http.StatusOK,
			wantReadyz:  http.StatusOK,
		},
		{
			name: "both brokers down still ready",
			down: func(s *dependencyState) {
				s.kafka.Store(false)
				s.redis.Store(false)
			},
			wantStatus:  healthcheck.StatusDegraded,
			wantHealthz: http.StatusOK,
			wantReadyz:  http.StatusOK,
		},
		{
			name:        "storage outage takes the service out",
			down:        func(s *dependencyState) { s.storage.Store(false) },
			wantStatus:  healthcheck.StatusUnhealthy,
			wantHealthz: http.StatusServiceUnavailable,
			wantReadyz:  http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newDependencyState()
			tt.down(state)
			base, _ := serveMetrics(t, shopChecks(state))

			code, body := fetch(t, base+"/healthz")
			assert.Equal(t, tt.wantHealthz, code)
			var report healthcheck.Response
			require.NoError(t, json.Unmarshal(body, &report))
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Len(t, report.Checks, 3)
			assert.True(t, report.Checks["storage"].Critical)
			assert.False(t, report.Checks["kafka"].Critical)

			code, _ = fetch(t, base+"/readyz")
			assert.Equal(t, tt.wantReadyz, code)

			// liveness не зависит от внешних систем
			code, body = fetch(t, base+"/livez")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "ok", string(body))
		})
	}
}

func TestMetricsServer_ExposesShopMetrics(t *testing.T) {
	base, _ := serveMetrics(t, shopChecks(newDependencyState()))

	code, body := fetch(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsServer_ReadinessRecoversWithStorage(t *testing.T) {
	state := newDependencyState()
	base, _ := serveMetrics(t, shopChecks(state))

	state.storage.Store(false)
	code, body := fetch(t, base+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", string(body))

	state.storage.Store(true)
	code, body = fetch(t, base+"/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", string(body))
}

func TestMetricsServer_StopsWithContext(t *testing.T) {
	base, cancel := serveMetrics(t, shopChecks(newDependencyState()))

	cancel()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err == nil {
			resp.Body.Close()
		}
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	shutdownHTTP(nil, log.WithField("test", "nil"))
}

func TestWatchHealth_FollowsStorageNotBrokers(t *testing.T) {
	state := newDependencyState()
	server := health.NewServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchHealth(ctx, shopChecks(state), server, 10*time.Millisecond)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	servingIs := func(want healthpb.HealthCheckResponse_ServingStatus) func() bool {
		return func() bool {
			resp, err := server.Check(context.Background(), &healthpb.HealthCheckRequest{})
			return err == nil && resp.GetStatus() == want
		}
	}

	require.Eventually(t, servingIs(healthpb.HealthCheckResponse_SERVING), time.Second, 5*time.Millisecond)

	state.kafka.Store(false)
	state.redis.Store(false)
	require.Never(t, servingIs(healthpb.HealthCheckResponse_NOT_SERVING), 100*time.Millisecond, 10*time.Millisecond,
		"broker outage must keep gRPC serving")

	state.storage.Store(false)
	require.Eventually(t, servingIs(healthpb.HealthCheckResponse_NOT_SERVING), time.Second, 5*time.Millisecond)

	state.storage.Store(true)
	require.Eventually(t, servingIs(healthpb.HealthCheckResponse_SERVING), time.Second, 5*time.Millisecond)
}

func TestWatchHealth_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished := make(chan struct{})
	go func() {
		watchHealth(ctx, shopChecks(newDependencyState()), health.NewServer(), time.Hour)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("watchHealth must return after cancel")
	}
}
