package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sender struct {
	kind   domain.TrackKind
	track  webrtc.TrackLocal
	sender *webrtc.RTPSender
}

// Peer is a pion-backed core.PeerConnection.
type Peer struct {
	f      *Factory
	self   domain.ParticipantID
	remote domain.ParticipantID
	local  core.LocalStream
	obs    core.PeerObserver
	// polite yields on offer collision.
	polite bool
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32

	mu        sync.Mutex
	role      domain.Role
	pc        *webrtc.PeerConnection
	senders   []sender
	pending   []webrtc.ICECandidateInit
	stream    *RemoteStream
	attached  bool
	closed    bool
	closeOnce sync.Once
}

var _ core.PeerConnection = (*Peer)(nil)

func newPeer(f *Factory, spec core.PeerSpec) (*Peer, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		f:      f,
		self:   spec.Self,
		remote: spec.Remote,
		local:  spec.Local,
		obs:    spec.Observer,
		polite: spec.Self < spec.Remote,
		role:   spec.Role,
		ctx:    ctx,
		cancel: cancel,
		log: log.With().Str("module", "rtc.peer").
			Str("self", string(spec.Self)).
			Str("remote", string(spec.Remote)).Logger(),
	}
	p.state.Store(int32(domain.NegotiationNew))

	pc, senders, err := p.buildTransport()
	if err != nil {
		cancel()
		return nil, err
	}
	p.pc = pc
	p.senders = senders
	p.log.Info().Str("role", spec.Role.String()).Msg("peer created")
	return p, nil
}

func (p *Peer) ID() domain.ParticipantID { return p.remote }

func (p *Peer) Role() domain.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

func (p *Peer) State() domain.NegotiationState {
	return domain.NegotiationState(p.state.Load())
}

// RemoteStream returns the inbound stream handle or nil before the first track.
func (p *Peer) RemoteStream() *RemoteStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

// buildTransport creates a pion connection with one transceiver per local
// track and receive-only slots for missing kinds.
func (p *Peer) buildTransport() (*webrtc.PeerConnection, []sender, error) {
	pc, err := p.f.newPeerConnection()
	if err != nil {
		return nil, nil, err
	}

	var senders []sender
	for _, kind := range []domain.TrackKind{domain.TrackAudio, domain.TrackVideo} {
		codecType := webrtc.RTPCodecTypeAudio
		if kind == domain.TrackVideo {
			codecType = webrtc.RTPCodecTypeVideo
		}
		var tracks []webrtc.TrackLocal
		if p.local != nil {
			tracks = p.local.Tracks(kind)
		}
		if len(tracks) == 0 {
			if _, err := pc.AddTransceiverFromKind(codecType, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				_ = pc.Close()
				return nil, nil, err
			}
			continue
		}
		for _, t := range tracks {
			tr, err := pc.AddTransceiverFromKind(codecType, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionSendrecv,
			})
			if err != nil {
				_ = pc.Close()
				return nil, nil, err
			}
			rs := tr.Sender()
			go drainRTCP(rs)
			senders = append(senders, sender{kind: kind, track: t, sender: rs})
		}
	}

	p.bind(pc)
	return pc, senders, nil
}

// bind registers callbacks that act only while pc is the current transport.
func (p *Peer) bind(pc *webrtc.PeerConnection) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || !p.current(pc) {
			return
		}
		p.obs.PeerSignal(p, encodeCandidate(c.ToJSON()))
	})

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		p.log.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if !p.current(pc) {
			return
		}
		p.log.Info().Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			p.onConnected()
		case webrtc.PeerConnectionStateFailed:
			p.fail(fmt.Errorf("%w: transport failed", domain.ErrPeerConnectionFailed))
		case webrtc.PeerConnectionStateClosed:
			p.fail(fmt.Errorf("%w: transport closed", domain.ErrPeerConnectionFailed))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if !p.current(pc) {
			return
		}
		p.log.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		p.onTrack(pc, track)
	})
}

func (p *Peer) current(pc *webrtc.PeerConnection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.pc == pc
}

// Start sends the offer for initiators. Responders wait for IngestSignal.
func (p *Peer) Start() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return domain.ErrPeerClosed
	}
	if p.role != domain.RoleInitiator {
		p.mu.Unlock()
		return nil
	}
	pc := p.pc
	p.state.Store(int32(domain.NegotiationNegotiating))
	offer, err := pc.CreateOffer(nil)
	if err == nil {
		err = pc.SetLocalDescription(offer)
	}
	p.mu.Unlock()
	if err != nil {
		p.fail(fmt.Errorf("%w: offer: %v", domain.ErrPeerConnectionFailed, err))
		return err
	}
	p.log.Debug().Msg("offer sent")
	p.obs.PeerSignal(p, encodeDescription(offer))
	return nil
}

// IngestSignal applies a remote negotiation payload.
func (p *Peer) IngestSignal(raw protocol.Payload) {
	msg, err := decodePayload(raw)
	if err != nil {
		p.log.Warn().Err(err).Msg("dropping signal")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Debug().Str("type", msg.Type).Msg("signal after close ignored")
		return
	}

	var (
		reply   protocol.Payload
		applied error
		stale   *webrtc.PeerConnection
	)
	switch msg.Type {
	case payloadOffer:
		if p.pc.SignalingState() == webrtc.SignalingStateHaveLocalOffer {
			if !p.polite {
				p.mu.Unlock()
				p.log.Info().Msg("offer collision, keeping own offer")
				return
			}
			p.log.Info().Msg("offer collision, yielding to remote offer")
			stale = p.pc
			pc, senders, err := p.buildTransport()
			if err != nil {
				applied = err
				break
			}
			p.pc, p.senders, p.role = pc, senders, domain.RoleResponder
		}
		p.state.Store(int32(domain.NegotiationNegotiating))
		reply, applied = p.answer(msg.description())
	case payloadAnswer:
		if p.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
			p.mu.Unlock()
			p.log.Debug().Msg("unexpected answer ignored")
			return
		}
		if applied = p.pc.SetRemoteDescription(msg.description()); applied == nil {
			p.flushPending()
		}
	case payloadCandidate:
		if p.pc.RemoteDescription() == nil {
			p.pending = append(p.pending, *msg.Candidate)
		} else if err := p.pc.AddICECandidate(*msg.Candidate); err != nil {
			p.log.Warn().Err(err).Msg("add candidate")
		}
	}
	p.mu.Unlock()

	if stale != nil {
		go func() { _ = stale.Close() }()
	}
	if applied != nil {
		p.fail(fmt.Errorf("%w: %s: %v", domain.ErrPeerConnectionFailed, msg.Type, applied))
		return
	}
	if reply != nil {
		p.log.Debug().Msg("answer sent")
		p.obs.PeerSignal(p, reply)
	}
}

// answer must be called with mu held.
func (p *Peer) answer(offer webrtc.SessionDescription) (protocol.Payload, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	p.flushPending()
	ans, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(ans); err != nil {
		return nil, err
	}
	return encodeDescription(ans), nil
}

// flushPending must be called with mu held.
func (p *Peer) flushPending() {
	for _, c := range p.pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			p.log.Warn().Err(err).Msg("add buffered candidate")
		}
	}
	p.pending = nil
}

func (p *Peer) onConnected() {
	p.mu.Lock()
	if p.closed || p.attached {
		p.mu.Unlock()
		return
	}
	p.attached = true
	senders := append([]sender(nil), p.senders...)
	p.mu.Unlock()

	for _, s := range senders {
		if err := s.sender.ReplaceTrack(s.track); err != nil {
			p.log.Error().Err(err).Str("kind", string(s.kind)).Msg("attach local track")
		}
	}
	p.state.Store(int32(domain.NegotiationConnected))
	p.log.Info().Int("tracks", len(senders)).Msg("connected, local media attached")
	p.obs.PeerConnected(p)
}

func (p *Peer) onTrack(pc *webrtc.PeerConnection, track *webrtc.TrackRemote) {
	p.mu.Lock()
	first := p.stream == nil
	if first {
		p.stream = newRemoteStream(string(p.remote) + "/" + track.StreamID())
	}
	stream := p.stream
	stream.add(track)
	p.mu.Unlock()

	if track.Kind() == webrtc.RTPCodecTypeVideo {
		go p.requestKeyframes(pc, track)
	}
	go p.readTrack(stream, track)

	if first {
		p.obs.PeerRemoteStream(p, stream)
	}
}

func (p *Peer) readTrack(stream *RemoteStream, track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
		stream.packets.Add(1)
		if p.ctx.Err() != nil {
			return
		}
	}
}

// requestKeyframes sends a PLI right away and then periodically.
func (p *Peer) requestKeyframes(pc *webrtc.PeerConnection, track *webrtc.TrackRemote) {
	ticker := time.NewTicker(p.f.pliInterval)
	defer ticker.Stop()
	for {
		err := pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.log.Debug().Err(err).Msg("PLI")
		}
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func drainRTCP(s *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := s.Read(buf); err != nil {
			return
		}
	}
}

func (p *Peer) fail(err error) {
	if !p.shutdown() {
		return
	}
	p.log.Warn().Err(err).Msg("peer failed")
	p.obs.PeerFailed(p, err)
}

// Close is idempotent. No observer calls follow it.
func (p *Peer) Close() {
	if p.shutdown() {
		p.log.Info().Msg("closed")
	}
}

// shutdown reports whether this call performed the close.
func (p *Peer) shutdown() bool {
	did := false
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		pc := p.pc
		p.pending = nil
		p.mu.Unlock()

		did = true
		p.state.Store(int32(domain.NegotiationClosed))
		p.cancel()
		if err := pc.Close(); err != nil {
			p.log.Error().Err(err).Msg("close error")
		}
	})
	return did
}
