package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/geo"
	"github.com/clambin/opendoor/internal/target"
	"github.com/clambin/opendoor/internal/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testTarget = target.Target{
	DeviceID: "1000abcd",
	Polygon:  geo.Polygon{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}},
}

type fakeMonitor struct {
	startErr error
	started  []target.Target
	running  bool
}

func (f *fakeMonitor) Start(_ context.Context, t target.Target) error {
	if f.startErr == nil {
		f.started = append(f.started, t)
		f.running = true
	}
	return f.startErr
}

func (f *fakeMonitor) Stop(string) bool {
	running := f.running
	f.running = false
	return running
}

type fakeOwnTracks struct {
	payloads []string
	err      error
}

func (f *fakeOwnTracks) Handle(_ context.Context, payload []byte) error {
	f.payloads = append(f.payloads, string(payload))
	return f.err
}

func newRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	addRoutes(r, h, slog.Default())
	return r
}

func TestHandleStart(t *testing.T) {
	tests := []struct {
		name     string
		target   target.Target
		startErr error
		want     int
	}{
		{name: "started", target: testTarget, want: http.StatusAccepted},
		{name: "busy", target: testTarget, startErr: checker.ErrGuardBusy, want: http.StatusConflict},
		{name: "shutting down", target: testTarget, startErr: trigger.ErrStopped, want: http.StatusServiceUnavailable},
		{name: "not configured", startErr: target.ErrNotConfigured, want: http.StatusBadRequest},
		{name: "invalid", target: testTarget, startErr: fmt.Errorf("%w: no device", target.ErrInvalidTarget), want: http.StatusBadRequest},
		{name: "guard failure", target: testTarget, startErr: errors.New("guard: disk full"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := fakeMonitor{startErr: tt.startErr}
			r := newRouter(Handlers{Monitor: &m, Target: func() target.Target { return tt.target }, Health: http.NotFoundHandler()})

			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/monitor/start", nil))
			assert.Equal(t, tt.want, resp.Code)
			if tt.want == http.StatusAccepted {
				assert.JSONEq(t, `{"deviceId":"1000abcd","running":true}`, resp.Body.String())
				assert.Len(t, m.started, 1)
			}
		})
	}
}

func TestHandleStop(t *testing.T) {
	m := fakeMonitor{running: true}
	r := newRouter(Handlers{Monitor: &m, Target: func() target.Target { return testTarget }, Health: http.NotFoundHandler()})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/monitor/stop", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"stopped":true}`, resp.Body.String())

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/monitor/stop", nil))
	assert.JSONEq(t, `{"stopped":false}`, resp.Body.String())

	r = newRouter(Handlers{Monitor: &m, Target: func() target.Target { return target.Target{} }, Health: http.NotFoundHandler()})
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/monitor/stop", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleOwnTracks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "accepted", want: http.StatusOK},
		{name: "not configured", err: target.ErrNotConfigured, want: http.StatusOK},
		{name: "invalid", err: errors.New("invalid message"), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := fakeOwnTracks{err: tt.err}
			r := newRouter(Handlers{OwnTracks: &o, Health: http.NotFoundHandler()})

			const payload = `{"_type":"location","lat":0.5,"lon":0.5,"tst":1700000000}`
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/owntracks", strings.NewReader(payload)))
			assert.Equal(t, tt.want, resp.Code)
			assert.Equal(t, []string{payload}, o.payloads)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `[]`, resp.Body.String())
			}
		})
	}
}

func TestHandleOwnTracks_Disabled(t *testing.T) {
	r := newRouter(Handlers{Health: http.NotFoundHandler()})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/owntracks", strings.NewReader(`{}`)))
	assert.NotEqual(t, http.StatusOK, resp.Code)
}

func TestServer_Run(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	health := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	s := New(addr, Handlers{Health: health, Monitor: &fakeMonitor{}, Target: func() target.Target { return testTarget }}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- s.Run(ctx) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "ok", string(body))

	cancel()
	assert.NoError(t, <-errCh)
}

func TestNewMetricsServer(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "opendoor_test_total", Help: "test counter"})
	registry.MustRegister(counter)
	counter.Inc()

	s := NewMetricsServer(":0", registry, slog.Default())
	resp := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "opendoor_test_total 1")
}
