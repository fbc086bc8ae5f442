package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/reachd/pkg/reachability"
)

func newTestCollector(t *testing.T) (*Collector, *reachability.Registry) {
	t.Helper()
	r := reachability.NewRegistry()
	t.Cleanup(r.Close)
	c := NewCollector(r, reachability.ChangeTopic)
	t.Cleanup(func() { _ = c.Close() })
	return c, r
}

func TestCollector_Seed(t *testing.T) {
	c, _ := newTestCollector(t)

	c.Seed("", reachability.ReachableViaLocalNetwork)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.status.WithLabelValues("default")))
	assert.Equal(t, 0, testutil.CollectAndCount(c.transitions))
}

func TestCollector_Observe(t *testing.T) {
	c, _ := newTestCollector(t)

	c.Observe(reachability.Event{Host: "192.0.2.1", Status: reachability.ReachableViaCellular})
	c.Observe(reachability.Event{Host: "192.0.2.1", Status: reachability.NotReachable})
	c.Observe(reachability.Event{Host: "192.0.2.1", Status: reachability.ReachableViaCellular})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.status.WithLabelValues("192.0.2.1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("192.0.2.1", "cellular")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("192.0.2.1", "not_reachable")))
}

func TestCollector_StartConsumesEvents(t *testing.T) {
	c, r := newTestCollector(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	r.Publish(reachability.ChangeTopic, reachability.Event{Status: reachability.ReachableViaLocalNetwork})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(c.transitions.WithLabelValues("default", "local_network")) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Start to return")
	}
}

func TestCollector_CloseStopsStart(t *testing.T) {
	c, r := newTestCollector(t)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, r.Subscribers(reachability.ChangeTopic))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Start to return")
	}
}

func TestCollector_Handler(t *testing.T) {
	c, _ := newTestCollector(t)
	c.Seed("", reachability.ReachableViaCellular)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `reachd_reachability_status{host="default"} 1`))
}
