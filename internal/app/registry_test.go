package app

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/core/mocks"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"go.uber.org/mock/gomock"
)

type fakePeer struct {
	spec core.PeerSpec

	mu       sync.Mutex
	started  int
	closed   int
	ingested []protocol.Payload
	startErr error
}

func (p *fakePeer) ID() domain.ParticipantID { return p.spec.Remote }
func (p *fakePeer) Role() domain.Role        { return p.spec.Role }

func (p *fakePeer) State() domain.NegotiationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed > 0 {
		return domain.NegotiationClosed
	}
	return domain.NegotiationNegotiating
}

func (p *fakePeer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	return p.startErr
}

func (p *fakePeer) IngestSignal(payload protocol.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ingested = append(p.ingested, payload)
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
}

func (p *fakePeer) counts() (started, closed, ingested int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.closed, len(p.ingested)
}

type fakeFactory struct {
	mu       sync.Mutex
	peers    []*fakePeer
	startErr error
}

func (f *fakeFactory) NewPeer(spec core.PeerSpec) (core.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePeer{spec: spec, startErr: f.startErr}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *fakeFactory) all() []*fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePeer(nil), f.peers...)
}

func (f *fakeFactory) byID(id domain.ParticipantID) []*fakePeer {
	var out []*fakePeer
	for _, p := range f.all() {
		if p.ID() == id {
			out = append(out, p)
		}
	}
	return out
}

func TestRegistryRandomUpsertsKeepOneEntryPerID(t *testing.T) {
	f := &fakeFactory{}
	reg := NewPeerRegistry(f, "self", nil, nil)
	ids := []domain.ParticipantID{"a", "b", "c", "d"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			if _, err := reg.UpsertInitiator(id); err != nil {
				t.Fatalf("initiator %s: %v", id, err)
			}
		} else {
			if _, err := reg.UpsertResponderOnSignal(id, protocol.Payload(`{"type":"offer","sdp":"x"}`)); err != nil {
				t.Fatalf("responder %s: %v", id, err)
			}
		}
	}

	if reg.Len() != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), reg.Len())
	}
	for _, id := range ids {
		if n := len(f.byID(id)); n != 1 {
			t.Fatalf("%s: factory called %d times", id, n)
		}
	}
}

func TestRegistryInitiatorStartedOnce(t *testing.T) {
	f := &fakeFactory{}
	reg := NewPeerRegistry(f, "self", nil, nil)

	created, err := reg.UpsertInitiator("a")
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	created, err = reg.UpsertInitiator("a")
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	p := f.byID("a")[0]
	if started, _, _ := p.counts(); started != 1 {
		t.Fatalf("started %d times", started)
	}
	if p.Role() != domain.RoleInitiator {
		t.Fatalf("role %s", p.Role())
	}
}

func TestRegistrySignalReachesExistingInitiator(t *testing.T) {
	f := &fakeFactory{}
	reg := NewPeerRegistry(f, "self", nil, nil)
	if _, err := reg.UpsertInitiator("a"); err != nil {
		t.Fatal(err)
	}
	created, err := reg.UpsertResponderOnSignal("a", protocol.Payload(`{"type":"answer","sdp":"x"}`))
	if err != nil || created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	p := f.byID("a")[0]
	if _, _, ingested := p.counts(); ingested != 1 {
		t.Fatalf("ingested %d", ingested)
	}
}

func TestRegistryStartFailureEvicts(t *testing.T) {
	f := &fakeFactory{startErr: errors.New("boom")}
	reg := NewPeerRegistry(f, "self", nil, nil)

	if _, err := reg.UpsertInitiator("a"); err == nil {
		t.Fatal("expected start error")
	}
	if reg.Len() != 0 {
		t.Fatalf("entry kept after failed start")
	}
	if _, closed, _ := f.byID("a")[0].counts(); closed != 1 {
		t.Fatalf("closed %d times", closed)
	}
}

func TestRegistryFactoryErrorLeavesNoEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := mocks.NewMockPeerFactory(ctrl)
	factory.EXPECT().NewPeer(gomock.Any()).Return(nil, errors.New("no api"))

	reg := NewPeerRegistry(factory, "self", nil, nil)
	if _, err := reg.UpsertResponderOnSignal("a", protocol.Payload(`{}`)); err == nil {
		t.Fatal("expected factory error")
	}
	if _, ok := reg.Get("a"); ok {
		t.Fatal("unexpected entry")
	}
}

func TestRegistryEvictChecksIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	stale := mocks.NewMockPeerConnection(ctrl)
	stale.EXPECT().ID().Return(domain.ParticipantID("a")).AnyTimes()

	f := &fakeFactory{}
	reg := NewPeerRegistry(f, "self", nil, nil)
	if _, err := reg.UpsertInitiator("a"); err != nil {
		t.Fatal(err)
	}

	if reg.Evict("a", stale) {
		t.Fatal("stale connection evicted the live entry")
	}
	if reg.Owns(stale) {
		t.Fatal("stale connection reported as owned")
	}
	if reg.AttachStream(stale, nil) {
		t.Fatal("stream attached to stale connection")
	}

	live, _ := reg.Get("a")
	if !reg.Evict("a", live) {
		t.Fatal("live entry not evicted")
	}
	if reg.Remove("a") {
		t.Fatal("remove of evicted id reported true")
	}
}

func TestRegistryRemoveAllClosesEverything(t *testing.T) {
	f := &fakeFactory{}
	reg := NewPeerRegistry(f, "self", nil, nil)
	for _, id := range []domain.ParticipantID{"c", "a", "b"} {
		if _, err := reg.UpsertInitiator(id); err != nil {
			t.Fatal(err)
		}
	}

	got := reg.RemoveAll()
	want := []domain.ParticipantID{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	for _, p := range f.all() {
		if _, closed, _ := p.counts(); closed != 1 {
			t.Fatalf("%s closed %d times", p.ID(), closed)
		}
	}
	if reg.Len() != 0 || len(reg.RemoveAll()) != 0 {
		t.Fatal("registry not empty")
	}
}
