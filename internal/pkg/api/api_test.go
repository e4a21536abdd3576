package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/dispatch"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/registry"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/safety"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry, *safety.Monitor) {
	t.Helper()
	reg := registry.New()
	dis, err := dispatch.NewDispatcher(dispatch.WithRegistry(reg))
	require.NoError(t, err)
	mon, err := safety.NewMonitor(
		safety.WithRegistry(reg),
		safety.WithDispatcher(dis),
		safety.WithInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	srv, err := NewServer(
		WithAddr("127.0.0.1:0"),
		WithRegistry(reg),
		WithDispatcher(dis),
		WithMonitor(mon),
	)
	require.NoError(t, err)
	return srv, reg, mon
}

func register(t *testing.T, reg *registry.Registry, state wire.RobotState) *registry.Outbox {
	t.Helper()
	outbox := registry.NewOutbox(8)
	reg.Upsert(state, outbox)
	return outbox
}

func nextMessage(t *testing.T, outbox *registry.Outbox) wire.ServerMessage {
	t.Helper()
	select {
	case msg := <-outbox.Receive():
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message enqueued")
		return nil
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestNewServerConfigValidation(t *testing.T) {
	reg := registry.New()
	dis, err := dispatch.NewDispatcher(dispatch.WithRegistry(reg))
	require.NoError(t, err)
	mon, err := safety.NewMonitor(safety.WithRegistry(reg), safety.WithDispatcher(dis))
	require.NoError(t, err)

	_, err = NewServer()
	require.Error(t, err)
	_, err = NewServer(WithAddr(""))
	require.Error(t, err)
	_, err = NewServer(WithAddr("127.0.0.1:0"), WithRegistry(reg))
	require.Error(t, err)
	_, err = NewServer(WithAddr("127.0.0.1:0"), WithRegistry(reg), WithDispatcher(dis))
	require.Error(t, err)
	_, err = NewServer(WithAddr("127.0.0.1:0"), WithRegistry(reg), WithDispatcher(dis), WithMonitor(mon))
	require.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestRobotsSnapshot(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	outbox := registry.NewOutbox(8)
	for i := 0; i < 3; i++ {
		reg.Upsert(wire.RobotState{ID: "r2", X: float64(100 + i), Y: 100, Active: true}, outbox)
	}
	register(t, reg, wire.RobotState{ID: "r1", X: 50, Y: 60, Active: true})

	resp, err := http.Get(ts.URL + "/api/robots")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body robotsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 2, body.Count)
	require.Equal(t, "r1", body.Robots[0].State.ID)
	require.Equal(t, "r2", body.Robots[1].State.ID)
	require.Len(t, body.Robots[1].Trail, 3)
	require.False(t, body.Robots[0].LastSeen.IsZero())
}

func TestSafetyReportEndpoint(t *testing.T) {
	srv, reg, mon := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, reg, wire.RobotState{ID: "close-a", X: 100, Y: 100, Active: true})
	register(t, reg, wire.RobotState{ID: "close-b", X: 140, Y: 100, Active: true})
	mon.Pass()

	resp, err := http.Get(ts.URL + "/api/safety")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report safety.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Equal(t, 2, report.Robots)
	require.ElementsMatch(t, []string{"close-a", "close-b"}, report.Flagged)
	require.ElementsMatch(t, []string{"close-a", "close-b"}, report.Stopped)
}

func TestStopAndResumeBroadcast(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	r1 := register(t, reg, wire.RobotState{ID: "r1", X: 100, Y: 100, Active: true})
	r2 := register(t, reg, wire.RobotState{ID: "r2", X: 400, Y: 300, Active: true})

	resp := postJSON(t, ts.URL+"/api/stop", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cmd commandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cmd))
	require.Equal(t, 2, cmd.Delivered)
	require.Equal(t, wire.ForceStop{}, nextMessage(t, r1))
	require.Equal(t, wire.ForceStop{}, nextMessage(t, r2))

	resp = postJSON(t, ts.URL+"/api/resume", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cmd))
	require.Equal(t, 2, cmd.Delivered)
	require.Equal(t, wire.Resume{}, nextMessage(t, r1))
	require.Equal(t, wire.Resume{}, nextMessage(t, r2))
}

func TestSpeedLimitValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "in_range", body: `{"limit": 120}`, want: http.StatusOK},
		{name: "zero_is_allowed", body: `{"limit": 0}`, want: http.StatusOK},
		{name: "upper_bound_inclusive", body: `{"limit": 200}`, want: http.StatusOK},
		{name: "above_range", body: `{"limit": 200.5}`, want: http.StatusBadRequest},
		{name: "negative", body: `{"limit": -5}`, want: http.StatusBadRequest},
		{name: "missing_limit", body: `{}`, want: http.StatusBadRequest},
		{name: "null_limit", body: `{"limit": null}`, want: http.StatusBadRequest},
		{name: "empty_body", body: ``, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/speed-limit", tt.body)
			defer resp.Body.Close()
			require.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusBadRequest {
				var body ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			}
		})
	}
}

func TestSpeedLimitDelivery(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	outbox := register(t, reg, wire.RobotState{ID: "r1", X: 100, Y: 100, Active: true})

	resp := postJSON(t, ts.URL+"/api/speed-limit", `{"limit": 80}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cmd commandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cmd))
	require.Equal(t, 1, cmd.Delivered)
	require.Equal(t, wire.SetSpeedLimit{Limit: 80}, nextMessage(t, outbox))
}

func TestWatchFeed(t *testing.T) {
	srv, reg, mon := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, reg, wire.RobotState{ID: "close-a", X: 100, Y: 100, Active: true})
	register(t, reg, wire.RobotState{ID: "close-b", X: 140, Y: 100, Active: true})
	mon.Pass()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame watchFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Len(t, frame.Robots, 2)
	require.ElementsMatch(t, []string{"close-a", "close-b"}, frame.Safety.Flagged)

	// The feed keeps up with registry changes on subsequent frames.
	register(t, reg, wire.RobotState{ID: "late", X: 400, Y: 300, Active: true})
	for {
		require.NoError(t, conn.ReadJSON(&frame))
		if len(frame.Robots) == 3 {
			break
		}
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		return srv.Addr() != ""
	}, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("control api did not stop")
	}
}

func TestRunBindFailureIsFatal(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	reg := registry.New()
	dis, err := dispatch.NewDispatcher(dispatch.WithRegistry(reg))
	require.NoError(t, err)
	mon, err := safety.NewMonitor(safety.WithRegistry(reg), safety.WithDispatcher(dis))
	require.NoError(t, err)
	srv, err := NewServer(
		WithAddr(taken.Addr().String()),
		WithRegistry(reg),
		WithDispatcher(dis),
		WithMonitor(mon),
	)
	require.NoError(t, err)

	err = srv.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen")
}
