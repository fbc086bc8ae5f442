package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/reachd/pkg/reachability"
)

// mockSource is a fixed StatusSource for testing
type mockSource struct {
	mu     sync.Mutex
	id     uuid.UUID
	host   string
	status reachability.Status
}

func newMockSource(s reachability.Status) *mockSource {
	return &mockSource{id: uuid.New(), status: s}
}

func (m *mockSource) Status() reachability.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockSource) TargetHost() string { return m.host }
func (m *mockSource) ID() uuid.UUID      { return m.id }

func newTestService(t *testing.T, src *mockSource, metrics http.Handler) (*Service, *reachability.Registry) {
	t.Helper()
	r := reachability.NewRegistry()
	t.Cleanup(r.Close)
	s := NewService("127.0.0.1", 0, src, r, reachability.ChangeTopic, metrics)
	t.Cleanup(func() { _ = s.Close() })
	return s, r
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.NotReachable), nil)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatusEndpoint(t *testing.T) {
	src := newMockSource(reachability.ReachableViaCellular)
	src.host = "192.0.2.1"
	s, _ := newTestService(t, src, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "192.0.2.1", resp.Host)
	assert.Equal(t, src.id, resp.Monitor)
	assert.Equal(t, reachability.ReachableViaCellular, resp.Status)
	assert.True(t, resp.Reachable)
	assert.True(t, resp.Cellular)
	assert.False(t, resp.LocalNetwork)
}

func TestStatusEndpoint_WireFormat(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.ReachableViaLocalNetwork), nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Contains(t, rr.Body.String(), `"status":"local_network"`)
	assert.Contains(t, rr.Body.String(), `"localNetwork":true`)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "reachd_up 1\n")
	})
	s, _ := newTestService(t, newMockSource(reachability.NotReachable), metrics)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "reachd_up 1\n", rr.Body.String())
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.NotReachable), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func dialStatus(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return c
}

func TestWebSocketStatusStream(t *testing.T) {
	src := newMockSource(reachability.ReachableViaLocalNetwork)
	s, r := newTestService(t, src, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialStatus(t, ctx, srv)
	defer c.CloseNow()

	var first StatusResponse
	require.NoError(t, wsjson.Read(ctx, c, &first))
	assert.Equal(t, reachability.ReachableViaLocalNetwork, first.Status)

	// The handler subscribes before writing the snapshot.
	require.Eventually(t, func() bool {
		return r.Subscribers(reachability.ChangeTopic) == 1
	}, time.Second, 5*time.Millisecond)

	// Events from other monitors are filtered out.
	r.Publish(reachability.ChangeTopic, reachability.Event{Monitor: uuid.New(), Status: reachability.ReachableViaCellular})
	r.Publish(reachability.ChangeTopic, reachability.Event{Monitor: src.id, Status: reachability.NotReachable})

	var next StatusResponse
	require.NoError(t, wsjson.Read(ctx, c, &next))
	assert.Equal(t, reachability.NotReachable, next.Status)
	assert.False(t, next.Reachable)
	assert.Equal(t, src.id, next.Monitor)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool {
		return r.Subscribers(reachability.ChangeTopic) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocketClosedOnShutdown(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.NotReachable), nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := dialStatus(t, ctx, srv)
	defer c.CloseNow()

	var first StatusResponse
	require.NoError(t, wsjson.Read(ctx, c, &first))

	require.NoError(t, s.Close())

	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestServiceStartAndClose(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.ReachableViaCellular), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Start to return")
	}
	assert.NoError(t, s.Close())
}

func TestServiceCloseBeforeStart(t *testing.T) {
	s, _ := newTestService(t, newMockSource(reachability.NotReachable), nil)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Start(context.Background()))
	assert.Nil(t, s.Addr())
}
