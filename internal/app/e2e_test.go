package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/meshcall/internal/adapters/channel"
	"github.com/dkeye/meshcall/internal/adapters/media"
	"github.com/dkeye/meshcall/internal/adapters/rtc"
	"github.com/dkeye/meshcall/internal/adapters/signal"
	"github.com/dkeye/meshcall/internal/app/orch"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

func (r *recorder) countPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func startRelay(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewRelay()
	o := orch.New(orch.NewRoomManager(), orch.SimplePolicy{}, orch.DeliverDirect, m)
	ctl := signal.NewSignalWSController(o, m, signal.DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal?room=e2e"
}

func startSession(t *testing.T, endpoint string) (*Controller, *recorder) {
	t.Helper()
	f, err := rtc.NewFactory(rtc.Options{LogLevel: zerolog.WarnLevel, PLIInterval: 200 * time.Millisecond},
		func(_ *webrtc.MediaEngine, _ *interceptor.Registry, s *webrtc.SettingEngine) {
			s.SetIncludeLoopbackCandidate(true)
			s.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
		})
	if err != nil {
		t.Fatal(err)
	}
	ui := &recorder{}
	c := NewController(endpoint, media.NewManager(media.NewSyntheticCapturer()), channel.New(channel.DefaultOptions()), f, ui)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, ui
}

func waitPeerConnected(t *testing.T, c *Controller, id domain.ParticipantID) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if reg := c.reg.Load(); reg != nil {
			if conn, ok := reg.Get(id); ok && conn.State() == domain.NegotiationConnected {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never connected to %s", c.Self(), id)
}

func TestTwoSessionsConnectThroughRelay(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real UDP sockets")
	}
	endpoint := startRelay(t)

	a, uiA := startSession(t, endpoint)
	a.Join()
	waitFor(t, "a active", func() bool { return a.State() == domain.SessionActive })

	b, uiB := startSession(t, endpoint)
	b.Join()
	waitFor(t, "b active", func() bool { return b.State() == domain.SessionActive })

	idA, idB := a.Self(), b.Self()
	if idA == "" || idB == "" || idA == idB {
		t.Fatalf("ids %q %q", idA, idB)
	}

	waitPeerConnected(t, a, idB)
	waitPeerConnected(t, b, idA)

	waitFor(t, "a sees b's stream", func() bool { return uiA.countPrefix("stream:"+string(idB)+":") >= 1 })
	waitFor(t, "b sees a's stream", func() bool { return uiB.countPrefix("stream:"+string(idA)+":") >= 1 })
	time.Sleep(500 * time.Millisecond)

	if n := uiA.countPrefix("stream:"); n != 1 {
		t.Fatalf("a got %d stream events: %v", n, uiA.list())
	}
	if n := uiB.countPrefix("stream:"); n != 1 {
		t.Fatalf("b got %d stream events: %v", n, uiB.list())
	}
	if uiA.count("joined:"+string(idB)) != 1 || uiB.count("joined:"+string(idA)) != 1 {
		t.Fatalf("join events a=%v b=%v", uiA.list(), uiB.list())
	}

	b.Leave()
	waitFor(t, "b idle", func() bool { return b.State() == domain.SessionIdle })
	waitFor(t, "a sees b leave", func() bool { return uiA.count("left:"+string(idB)) == 1 })
	if len(a.Participants()) != 0 {
		t.Fatalf("a still tracks %v", a.Participants())
	}
}

func TestLeaveInterruptsRelayHandshake(t *testing.T) {
	accepted := make(chan struct{}, 4)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		accepted <- struct{}{}
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	ui := &recorder{}
	c := NewController(endpoint, &fakeMedia{}, channel.New(channel.DefaultOptions()), &fakeFactory{}, ui)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c.Join()
	select {
	case <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("relay never accepted")
	}
	start := time.Now()
	c.Leave()
	waitFor(t, "idle", func() bool { return ui.count("state:idle") == 1 })
	if d := time.Since(start); d > time.Second {
		t.Fatalf("leave took %v", d)
	}

	c.Join()
	waitFor(t, "second join", func() bool { return ui.count("state:joining") == 2 })
	if ui.count("error:invalid_state") != 0 {
		t.Fatalf("rejoin rejected: %v", ui.list())
	}
}
