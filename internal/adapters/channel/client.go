// Package channel is the client side of the relay websocket.
package channel

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
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	ErrBackpressure = errors.New("backpressure")
)

type Options struct {
	DialTimeout time.Duration
	WriteWait   time.Duration
	PongWait    time.Duration
	// PingPeriod must be shorter than PongWait.
	PingPeriod time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		DialTimeout: 10 * time.Second,
		WriteWait:   5 * time.Second,
		PongWait:    60 * time.Second,
		PingPeriod:  30 * time.Second,
		SendBuffer:  64,
	}
}

// WSChannel implements core.SignalingChannel over gorilla/websocket.
// One instance serves consecutive sessions; Connect after Disconnect opens
// a fresh connection.
type WSChannel struct {
	opts   Options
	dialer *websocket.Dialer

	mu  sync.Mutex
	cur *wsConn
}

var _ core.SignalingChannel = (*WSChannel)(nil)

func New(opts Options) *WSChannel {
	def := DefaultOptions()
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait / 2
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	return &WSChannel{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.DialTimeout,
		},
	}
}

type wsConn struct {
	ws   *websocket.Conn
	send chan core.Frame
	done chan struct{}
	sink core.SignalSink
	self domain.ParticipantID

	once     sync.Once
	detached atomic.Bool
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Connect dials the relay and waits for its introduction. The roster is
// delivered to sink before any other event.
func (ch *WSChannel) Connect(ctx context.Context, endpoint string, sink core.SignalSink) (domain.ParticipantID, error) {
	ch.mu.Lock()
	busy := ch.cur != nil
	ch.mu.Unlock()
	if busy {
		return "", fmt.Errorf("%w: already connected", domain.ErrInvalidState)
	}

	dctx, cancel := context.WithTimeout(ctx, ch.opts.DialTimeout)
	defer cancel()
	ws, _, err := ch.dialer.DialContext(dctx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", domain.ErrSignalingUnavailable, endpoint, err)
	}

	// a cancelled ctx unblocks the introduction read
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	deadline, _ := dctx.Deadline()
	_ = ws.SetReadDeadline(deadline)
	_, data, err := ws.ReadMessage()
	if !stop() {
		_ = ws.Close()
		return "", fmt.Errorf("%w: waiting for introduction: %v", domain.ErrSignalingUnavailable, ctx.Err())
	}
	if err != nil {
		_ = ws.Close()
		return "", fmt.Errorf("%w: waiting for introduction: %v", domain.ErrSignalingUnavailable, err)
	}
	intro, err := protocol.Decode(data)
	if err != nil || intro.Type != protocol.TypeIntroduction {
		_ = ws.Close()
		return "", fmt.Errorf("%w: expected introduction, got %q", domain.ErrSignalingUnavailable, data)
	}

	c := &wsConn{
		ws:   ws,
		send: make(chan core.Frame, ch.opts.SendBuffer),
		done: make(chan struct{}),
		sink: sink,
		self: intro.SelfID,
	}
	ch.mu.Lock()
	ch.cur = c
	ch.mu.Unlock()

	log.Info().Str("module", "channel").Str("self", string(c.self)).Int("others", len(intro.OtherIDs)).Msg("connected to relay")

	go ch.writePump(c)
	go ch.readPump(c, intro.OtherIDs)
	return c.self, nil
}

func (ch *WSChannel) SendSignal(to, from domain.ParticipantID, payload protocol.Payload) error {
	ch.mu.Lock()
	c := ch.cur
	ch.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	data, err := protocol.Encode(protocol.Signal(to, from, payload))
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrNotConnected
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Disconnect closes the socket without reporting ChannelClosed.
func (ch *WSChannel) Disconnect() {
	ch.mu.Lock()
	c := ch.cur
	ch.cur = nil
	ch.mu.Unlock()
	if c == nil {
		return
	}
	c.detached.Store(true)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leave"),
		time.Now().Add(ch.opts.WriteWait))
	c.close()
	log.Info().Str("module", "channel").Str("self", string(c.self)).Msg("disconnected")
}

func (ch *WSChannel) writePump(c *wsConn) {
	ticker := time.NewTicker(ch.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(ch.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump write error")
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(ch.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("module", "channel").Msg("writePump ping error")
				c.close()
				return
			}
		}
	}
}

func (ch *WSChannel) readPump(c *wsConn, roster []domain.ParticipantID) {
	var readErr error
	defer func() {
		c.close()
		ch.mu.Lock()
		if ch.cur == c {
			ch.cur = nil
		}
		ch.mu.Unlock()
		if !c.detached.Load() {
			log.Warn().Err(readErr).Str("module", "channel").Msg("relay connection lost")
			c.sink.ChannelClosed(fmt.Errorf("%w: %v", domain.ErrSignalingUnavailable, readErr))
		}
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(ch.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(ch.opts.PongWait))
	})

	c.sink.Roster(roster)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(ch.opts.PongWait))
		if c.detached.Load() {
			return
		}
		ch.dispatch(c, data)
	}
}

func (ch *WSChannel) dispatch(c *wsConn, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "channel").Msg("dropping frame")
		return
	}
	switch msg.Type {
	case protocol.TypeNewUserConnected:
		c.sink.ParticipantJoined(msg.ID)
	case protocol.TypeUserDisconnected:
		c.sink.ParticipantLeft(msg.ID)
	case protocol.TypeSignal:
		c.sink.Signal(msg.To, msg.From, msg.Payload)
	case protocol.TypeError:
		log.Warn().Str("module", "channel").Str("error", msg.Error).Msg("relay error")
	case protocol.TypePing:
		if b, err := protocol.Encode(protocol.Message{Type: protocol.TypePong}); err == nil {
			select {
			case c.send <- b:
			default:
			}
		}
	case protocol.TypePong, protocol.TypeIntroduction:
	}
}
