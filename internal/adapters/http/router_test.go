package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/meshcall/internal/adapters/ice"
	"github.com/dkeye/meshcall/internal/app/orch"
	"github.com/dkeye/meshcall/internal/config"
	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewRelay()
	o := orch.New(orch.NewRoomManager(), orch.SimplePolicy{}, orch.DeliverDirect, m)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, o, m))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := stdhttp.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestRouterEndpoints(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>call</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{Mode: "test", StaticPath: static}
	srv := newTestServer(t, cfg)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/healthz", stdhttp.StatusOK, `"ok"`},
		{"/", stdhttp.StatusOK, "<h1>call</h1>"},
		{"/static/index.html", stdhttp.StatusOK, "<h1>call</h1>"},
		{"/api/ice", stdhttp.StatusOK, ice.FallbackSTUN},
		{"/api/rooms", stdhttp.StatusOK, "[]"},
		{"/metrics", stdhttp.StatusOK, "meshcall_relay_connections"},
		{"/api/missing", stdhttp.StatusNotFound, ""},
	}
	for _, tt := range tests {
		code, body := get(t, srv.URL+tt.path)
		if code != tt.wantCode || !strings.Contains(body, tt.contains) {
			t.Errorf("GET %s = %d %q", tt.path, code, body)
		}
	}
}

func TestRouterICEUsesConfiguredRelay(t *testing.T) {
	cfg := &config.Config{Mode: "test", StaticPath: t.TempDir()}
	cfg.ICE = config.ICEConfig{URLs: "relay.example.com", Username: "u", Credential: "c"}
	srv := newTestServer(t, cfg)

	_, body := get(t, srv.URL+"/api/ice")
	var servers []struct {
		URLs       []string `json:"urls"`
		Username   string   `json:"username"`
		Credential string   `json:"credential"`
	}
	if err := json.Unmarshal([]byte(body), &servers); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if len(servers) != 1 || servers[0].URLs[0] != "turn:relay.example.com" || servers[0].Username != "u" || servers[0].Credential != "c" {
		t.Fatalf("servers %+v", servers)
	}
}

func TestRouterListsRoomsWithMembers(t *testing.T) {
	cfg := &config.Config{Mode: "test", StaticPath: t.TempDir()}
	srv := newTestServer(t, cfg)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal?room=lobby"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("no introduction: %v", err)
	}

	var rooms []core.RoomInfo
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, body := get(t, srv.URL+"/api/rooms")
		if err := json.Unmarshal([]byte(body), &rooms); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
		if len(rooms) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(rooms) != 1 || rooms[0].Name != "lobby" || rooms[0].MemberCount != 1 {
		t.Fatalf("rooms %+v", rooms)
	}
}

func TestSignalOptions(t *testing.T) {
	opts := SignalOptions(config.RelayConfig{
		SendBuffer: 8,
		PongWait:   10 * time.Second,
		PingPeriod: 20 * time.Second,
		ReadLimit:  1024,
		RateLimit:  0,
	})
	if opts.SendBuffer != 8 || opts.PongWait != 10*time.Second || opts.MaxMessage != 1024 {
		t.Fatalf("opts %+v", opts)
	}
	if opts.PingPeriod != 9*time.Second {
		t.Fatalf("ping period longer than pong wait accepted: %v", opts.PingPeriod)
	}
	if opts.RateLimit != 0 {
		t.Fatalf("rate limit %d", opts.RateLimit)
	}
}
