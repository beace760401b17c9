package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ParticipantID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("id", string(id)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.Leave(id)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(id)
		}
		ctl.Metrics.Connections.Dec()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("id", string(id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.handleFrame(id, c, data)
	}
}

func (ctl *SignalWSController) handleFrame(id domain.ParticipantID, c *WsSignalConn, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		label := "malformed"
		if errors.Is(err, protocol.ErrUnknownType) {
			label = "unknown"
		}
		ctl.Metrics.Frames.WithLabelValues(label).Inc()
		log.Warn().Err(err).Str("module", "signal").Str("id", string(id)).Msg("bad frame")
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Metrics.Frames.WithLabelValues(string(msg.Type)).Inc()

	if ctl.Limiter != nil && !ctl.Limiter.Allow(id) {
		ctl.Metrics.RateLimited.Inc()
		ctl.sendError(c, "rate_limited")
		return
	}

	switch msg.Type {
	case protocol.TypeSignal:
		ctl.Orch.Relay(id, msg)
	case protocol.TypePing:
		ctl.handlePing(c)
	case protocol.TypePong:
	default:
		log.Warn().Str("module", "signal").Str("type", string(msg.Type)).Msg("unsupported from client")
		ctl.sendError(c, "unsupported")
	}
}

func (ctl *SignalWSController) send(c *WsSignalConn, m protocol.Message) {
	b, err := protocol.Encode(m)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send marshal")
		return
	}
	_ = c.TrySend(b)
}
