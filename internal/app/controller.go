// Package app holds the session controller and its peer registry.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Controller runs one participant's call session. API methods only post
// events; everything else happens on the Run goroutine.
type Controller struct {
	endpoint string
	media    core.MediaManager
	channel  core.SignalingChannel
	factory  core.PeerFactory
	ui       core.Observer

	box   *mailbox
	state atomic.Int32
	reg   atomic.Pointer[PeerRegistry]
	self  atomic.Value // domain.ParticipantID
	wg    sync.WaitGroup

	// owned by the loop
	gen        uint64
	joinCancel context.CancelFunc
	pending    []event
}

func NewController(endpoint string, media core.MediaManager, channel core.SignalingChannel, factory core.PeerFactory, ui core.Observer) *Controller {
	if ui == nil {
		ui = core.NopObserver{}
	}
	c := &Controller{
		endpoint: endpoint,
		media:    media,
		channel:  channel,
		factory:  factory,
		ui:       ui,
		box:      newMailbox(),
	}
	c.state.Store(int32(domain.SessionIdle))
	c.self.Store(domain.ParticipantID(""))
	return c
}

func (c *Controller) Join()  { c.box.post(joinRequest{}) }
func (c *Controller) Leave() { c.box.post(leaveRequest{}) }

func (c *Controller) SetAudioEnabled(enabled bool) {
	c.box.post(toggleRequest{kind: domain.TrackAudio, enabled: enabled})
}

func (c *Controller) SetVideoEnabled(enabled bool) {
	c.box.post(toggleRequest{kind: domain.TrackVideo, enabled: enabled})
}

// SetOutgoingEnabled gates every outgoing track at once.
func (c *Controller) SetOutgoingEnabled(enabled bool) {
	c.box.post(toggleRequest{enabled: enabled})
}

func (c *Controller) State() domain.SessionState {
	return domain.SessionState(c.state.Load())
}

// Self is the id assigned by the relay for the current session.
func (c *Controller) Self() domain.ParticipantID {
	return c.self.Load().(domain.ParticipantID)
}

// Participants lists remote ids with a live connection entry.
func (c *Controller) Participants() []domain.ParticipantID {
	if reg := c.reg.Load(); reg != nil {
		return reg.IDs()
	}
	return nil
}

// Run processes events until ctx is done, then tears the session down.
func (c *Controller) Run(ctx context.Context) error {
	log.Info().Str("module", "app.controller").Msg("controller loop started")
	for {
		for _, e := range c.box.drain() {
			c.dispatch(e)
		}
		select {
		case <-ctx.Done():
			c.shutdown()
			log.Info().Str("module", "app.controller").Msg("controller loop stopped")
			return ctx.Err()
		case <-c.box.notify:
		}
	}
}

func (c *Controller) dispatch(e event) {
	switch ev := e.(type) {
	case joinRequest:
		c.handleJoin()
	case leaveRequest:
		c.handleLeave()
	case toggleRequest:
		c.handleToggle(ev)
	case joinResult:
		c.handleJoinResult(ev)
	case rosterEvent, participantJoinedEvent, participantLeftEvent, signalEvent, channelClosedEvent:
		c.handleChannelEvent(ev)
	case peerSignalEvent, peerConnectedEvent, peerStreamEvent, peerFailedEvent:
		c.handlePeerEvent(ev)
	default:
		log.Warn().Str("module", "app.controller").Str("event", fmt.Sprintf("%T", e)).Msg("unknown event")
	}
}

func (c *Controller) setState(s domain.SessionState) {
	if domain.SessionState(c.state.Swap(int32(s))) == s {
		return
	}
	log.Info().Str("module", "app.controller").Str("state", s.String()).Msg("session state")
	c.ui.StateChanged(s)
}

func (c *Controller) handleJoin() {
	if st := c.State(); st != domain.SessionIdle {
		log.Warn().Str("module", "app.controller").Str("state", st.String()).Msg("join ignored")
		c.ui.Error(domain.KindInvalidState, "join while "+st.String())
		return
	}
	c.gen++
	c.pending = nil
	c.setState(domain.SessionJoining)

	ctx, cancel := context.WithCancel(context.Background())
	c.joinCancel = cancel
	gen := c.gen
	sink := sessionSink{box: c.box, gen: gen}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := joinResult{gen: gen}
		local, err := c.media.AcquireStream(ctx)
		if err != nil {
			res.err = fmt.Errorf("acquire media: %w", err)
			c.box.post(res)
			return
		}
		self, err := c.channel.Connect(ctx, c.endpoint, sink)
		if err != nil {
			c.media.Release()
			res.err = fmt.Errorf("connect relay: %w", err)
			c.box.post(res)
			return
		}
		res.self, res.local = self, local
		c.box.post(res)
	}()
}

func (c *Controller) handleJoinResult(res joinResult) {
	if res.gen != c.gen {
		return
	}
	if c.joinCancel != nil {
		c.joinCancel()
		c.joinCancel = nil
	}

	switch c.State() {
	case domain.SessionJoining:
	case domain.SessionLeaving:
		// leave arrived while joining
		if res.err == nil {
			c.channel.Disconnect()
			c.media.Release()
		}
		c.pending = nil
		c.setState(domain.SessionIdle)
		return
	default:
		return
	}

	if res.err != nil {
		log.Warn().Err(res.err).Str("module", "app.controller").Msg("join failed")
		c.pending = nil
		c.setState(domain.SessionIdle)
		c.ui.Error(domain.KindOf(res.err), res.err.Error())
		return
	}

	c.self.Store(res.self)
	c.reg.Store(NewPeerRegistry(c.factory, res.self, res.local, peerObserver{box: c.box, gen: c.gen}))
	c.setState(domain.SessionActive)
	log.Info().Str("module", "app.controller").Str("self", string(res.self)).Msg("joined")
	c.ui.LocalStreamReady(res.local)

	queued := c.pending
	c.pending = nil
	for _, e := range queued {
		c.handleChannelEvent(e)
	}
}

func (c *Controller) handleLeave() {
	switch c.State() {
	case domain.SessionJoining:
		c.setState(domain.SessionLeaving)
		if c.joinCancel != nil {
			c.joinCancel()
		}
	case domain.SessionActive:
		c.teardown()
	default:
		log.Debug().Str("module", "app.controller").Str("state", c.State().String()).Msg("leave ignored")
	}
}

// teardown releases every session resource and returns to Idle.
func (c *Controller) teardown() {
	c.setState(domain.SessionLeaving)
	if reg := c.reg.Load(); reg != nil {
		for _, id := range reg.RemoveAll() {
			c.ui.ParticipantLeft(id)
		}
	}
	c.reg.Store(nil)
	c.channel.Disconnect()
	c.media.Release()
	c.self.Store(domain.ParticipantID(""))
	c.gen++
	c.setState(domain.SessionIdle)
}

func (c *Controller) handleToggle(t toggleRequest) {
	if t.kind == "" {
		c.media.SetAllEnabled(t.enabled)
		return
	}
	c.media.SetTrackEnabled(t.kind, t.enabled)
}

func eventGen(e event) uint64 {
	switch ev := e.(type) {
	case rosterEvent:
		return ev.gen
	case participantJoinedEvent:
		return ev.gen
	case participantLeftEvent:
		return ev.gen
	case signalEvent:
		return ev.gen
	case channelClosedEvent:
		return ev.gen
	case peerSignalEvent:
		return ev.gen
	case peerConnectedEvent:
		return ev.gen
	case peerStreamEvent:
		return ev.gen
	case peerFailedEvent:
		return ev.gen
	}
	return 0
}

func (c *Controller) handleChannelEvent(e event) {
	if eventGen(e) != c.gen {
		return
	}
	switch c.State() {
	case domain.SessionJoining:
		c.pending = append(c.pending, e)
		return
	case domain.SessionActive:
	default:
		return
	}

	reg := c.reg.Load()
	self := c.Self()
	switch ev := e.(type) {
	case rosterEvent:
		for _, id := range ev.ids {
			c.addInitiator(reg, self, id)
		}
	case participantJoinedEvent:
		c.addInitiator(reg, self, ev.id)
	case participantLeftEvent:
		if ev.id == self {
			return
		}
		if reg.Remove(ev.id) {
			c.ui.ParticipantLeft(ev.id)
		}
	case signalEvent:
		if ev.to != self || ev.from == self || ev.from == "" {
			log.Debug().Str("module", "app.controller").Str("to", string(ev.to)).Str("from", string(ev.from)).Msg("signal not for us")
			return
		}
		created, err := reg.UpsertResponderOnSignal(ev.from, ev.payload)
		if err != nil {
			log.Error().Err(err).Str("module", "app.controller").Str("id", string(ev.from)).Msg("create responder")
			c.ui.Error(domain.KindPeerConnectionFailed, err.Error())
			return
		}
		if created {
			c.ui.ParticipantJoined(ev.from)
		}
	case channelClosedEvent:
		log.Warn().Err(ev.err).Str("module", "app.controller").Msg("relay connection lost")
		detail := "relay connection lost"
		if ev.err != nil {
			detail = ev.err.Error()
		}
		c.ui.Error(domain.KindSignalingUnavailable, detail)
		c.teardown()
	}
}

func (c *Controller) addInitiator(reg *PeerRegistry, self, id domain.ParticipantID) {
	if id == self || id == "" {
		return
	}
	created, err := reg.UpsertInitiator(id)
	if err != nil {
		log.Error().Err(err).Str("module", "app.controller").Str("id", string(id)).Msg("create initiator")
		c.ui.Error(domain.KindPeerConnectionFailed, err.Error())
		return
	}
	if created {
		c.ui.ParticipantJoined(id)
	}
}

func (c *Controller) handlePeerEvent(e event) {
	if eventGen(e) != c.gen || c.State() != domain.SessionActive {
		return
	}
	reg := c.reg.Load()
	if reg == nil {
		return
	}

	switch ev := e.(type) {
	case peerSignalEvent:
		if !reg.Owns(ev.conn) {
			return
		}
		if err := c.channel.SendSignal(ev.conn.ID(), c.Self(), ev.payload); err != nil {
			log.Warn().Err(err).Str("module", "app.controller").Str("to", string(ev.conn.ID())).Msg("send signal")
		}
	case peerConnectedEvent:
		if reg.Owns(ev.conn) {
			log.Info().Str("module", "app.controller").Str("id", string(ev.conn.ID())).Msg("peer connected")
		}
	case peerStreamEvent:
		if reg.AttachStream(ev.conn, ev.stream) {
			c.ui.RemoteStreamUpdated(ev.conn.ID(), ev.stream)
		}
	case peerFailedEvent:
		id := ev.conn.ID()
		if !reg.Evict(id, ev.conn) {
			return
		}
		log.Warn().Err(ev.err).Str("module", "app.controller").Str("id", string(id)).Msg("peer failed, evicted")
		c.ui.ParticipantLeft(id)
		c.ui.Error(domain.KindPeerConnectionFailed, fmt.Sprintf("%s: %v", id, ev.err))
	}
}

// shutdown runs after the loop stops; it waits out an in-flight join.
func (c *Controller) shutdown() {
	switch c.State() {
	case domain.SessionActive:
		c.teardown()
		return
	case domain.SessionJoining:
		c.setState(domain.SessionLeaving)
		if c.joinCancel != nil {
			c.joinCancel()
		}
	}
	c.wg.Wait()
	for _, e := range c.box.drain() {
		if res, ok := e.(joinResult); ok {
			c.handleJoinResult(res)
		}
	}
}
