package rtc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/meshcall/internal/adapters/media"
	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// link forwards signals to the other side in emission order.
type link struct {
	other   atomic.Pointer[Peer]
	queue   chan protocol.Payload
	streams chan core.StreamHandle
	failed  chan error

	connectedOnce sync.Once
	connected     chan struct{}
}

func newLink() *link {
	l := &link{
		queue:     make(chan protocol.Payload, 256),
		streams:   make(chan core.StreamHandle, 4),
		failed:    make(chan error, 4),
		connected: make(chan struct{}),
	}
	return l
}

// run starts delivery; signals emitted before it are held.
func (l *link) run() {
	go func() {
		for p := range l.queue {
			if other := l.other.Load(); other != nil {
				other.IngestSignal(p)
			}
		}
	}()
}

func (l *link) PeerSignal(_ core.PeerConnection, p protocol.Payload) { l.queue <- p }
func (l *link) PeerFailed(_ core.PeerConnection, err error)          { l.failed <- err }

func (l *link) PeerConnected(core.PeerConnection) {
	l.connectedOnce.Do(func() { close(l.connected) })
}

func (l *link) PeerRemoteStream(_ core.PeerConnection, s core.StreamHandle) {
	l.streams <- s
}

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory(Options{LogLevel: zerolog.WarnLevel, PLIInterval: 200 * time.Millisecond},
		func(_ *webrtc.MediaEngine, _ *interceptor.Registry, s *webrtc.SettingEngine) {
			s.SetIncludeLoopbackCandidate(true)
			s.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
		})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func newTestSource(t *testing.T) *media.Source {
	t.Helper()
	m := media.NewManager(media.NewSyntheticCapturer())
	src, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Release)
	return src
}

type side struct {
	peer *Peer
	link *link
}

func newPair(t *testing.T, roleA, roleB domain.Role) (a, b side) {
	t.Helper()
	f := newTestFactory(t)
	la, lb := newLink(), newLink()
	pa, err := newPeer(f, core.PeerSpec{Self: "a", Remote: "b", Role: roleA, Local: newTestSource(t), Observer: la})
	if err != nil {
		t.Fatal(err)
	}
	pb, err := newPeer(f, core.PeerSpec{Self: "b", Remote: "a", Role: roleB, Local: newTestSource(t), Observer: lb})
	if err != nil {
		t.Fatal(err)
	}
	la.other.Store(pb)
	lb.other.Store(pa)
	t.Cleanup(func() {
		pa.Close()
		pb.Close()
	})
	return side{pa, la}, side{pb, lb}
}

func waitConnected(t *testing.T, s side) {
	t.Helper()
	select {
	case <-s.link.connected:
	case err := <-s.link.failed:
		t.Fatalf("peer %s failed: %v", s.peer.self, err)
	case <-time.After(15 * time.Second):
		t.Fatalf("peer %s did not connect", s.peer.self)
	}
}

func waitStream(t *testing.T, s side) core.StreamHandle {
	t.Helper()
	select {
	case h := <-s.link.streams:
		return h
	case <-time.After(15 * time.Second):
		t.Fatalf("peer %s got no remote stream", s.peer.self)
	}
	return nil
}

func TestPeersConnectAndExchangeMedia(t *testing.T) {
	a, b := newPair(t, domain.RoleInitiator, domain.RoleResponder)
	if err := b.peer.Start(); err != nil {
		t.Fatalf("responder start: %v", err)
	}
	if b.peer.State() != domain.NegotiationNew {
		t.Fatalf("responder state after Start = %s", b.peer.State())
	}
	if err := a.peer.Start(); err != nil {
		t.Fatal(err)
	}
	a.link.run()
	b.link.run()

	waitConnected(t, a)
	waitConnected(t, b)
	if a.peer.State() != domain.NegotiationConnected || b.peer.State() != domain.NegotiationConnected {
		t.Fatalf("states a=%s b=%s", a.peer.State(), b.peer.State())
	}

	ha, hb := waitStream(t, a), waitStream(t, b)
	if ha == nil || hb == nil {
		t.Fatal("nil stream handle")
	}

	deadline := time.Now().Add(10 * time.Second)
	for a.peer.RemoteStream().Packets() == 0 || b.peer.RemoteStream().Packets() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no media packets received")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// audio and video both arrive, but the handle is announced once
	time.Sleep(300 * time.Millisecond)
	select {
	case extra := <-a.link.streams:
		t.Fatalf("second stream event %v", extra.ID())
	default:
	}
}

func TestOfferCollisionResolves(t *testing.T) {
	a, b := newPair(t, domain.RoleInitiator, domain.RoleInitiator)
	if err := a.peer.Start(); err != nil {
		t.Fatal(err)
	}
	if err := b.peer.Start(); err != nil {
		t.Fatal(err)
	}
	a.link.run()
	b.link.run()

	waitConnected(t, a)
	waitConnected(t, b)
	// "a" sorts first and yields
	if a.peer.Role() != domain.RoleResponder {
		t.Fatalf("polite side role = %s", a.peer.Role())
	}
	if b.peer.Role() != domain.RoleInitiator {
		t.Fatalf("impolite side role = %s", b.peer.Role())
	}
	waitStream(t, a)
	waitStream(t, b)
}

func TestMalformedSignalIsDropped(t *testing.T) {
	_, b := newPair(t, domain.RoleInitiator, domain.RoleResponder)
	for _, raw := range []string{`not json`, `{"type":"bogus"}`, `{"type":"offer"}`, `{"type":"candidate"}`} {
		b.peer.IngestSignal(protocol.Payload(raw))
	}
	if b.peer.State() != domain.NegotiationNew {
		t.Fatalf("state = %s, want new", b.peer.State())
	}
	select {
	case err := <-b.link.failed:
		t.Fatalf("unexpected failure %v", err)
	default:
	}
}

func TestCloseIsIdempotentAndSilent(t *testing.T) {
	a, _ := newPair(t, domain.RoleInitiator, domain.RoleResponder)
	a.peer.Close()
	a.peer.Close()
	if a.peer.State() != domain.NegotiationClosed {
		t.Fatalf("state = %s", a.peer.State())
	}
	if err := a.peer.Start(); !errors.Is(err, domain.ErrPeerClosed) {
		t.Fatalf("start after close: %v", err)
	}
	a.peer.IngestSignal(protocol.Payload(`{"type":"answer","sdp":"v=0"}`))

	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-a.link.failed:
		t.Fatalf("failure after close: %v", err)
	default:
	}
}

func TestBadRemoteDescriptionFails(t *testing.T) {
	_, b := newPair(t, domain.RoleInitiator, domain.RoleResponder)
	b.peer.IngestSignal(protocol.Payload(`{"type":"offer","sdp":"garbage"}`))
	select {
	case err := <-b.link.failed:
		if !errors.Is(err, domain.ErrPeerConnectionFailed) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected failure")
	}
	if b.peer.State() != domain.NegotiationClosed {
		t.Fatalf("state = %s", b.peer.State())
	}
}
