// Package signal serves the relay websocket endpoint.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/meshcall/internal/app/orch"
	"github.com/dkeye/meshcall/internal/core"
	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	MaxMessage int64
	// RateLimit frames per RateInterval per participant; zero disables limiting.
	RateLimit    int
	RateInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:   32,
		WriteWait:    5 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   30 * time.Second,
		MaxMessage:   64 << 10,
		RateLimit:    200,
		RateInterval: time.Second,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *RoomRateLimiter
	Metrics *metrics.Relay
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, m *metrics.Relay, opts Options) *SignalWSController {
	ctl := &SignalWSController{Orch: o, Metrics: m, opts: opts}
	if opts.RateLimit > 0 {
		ctl.Limiter = NewRoomRateLimiter(opts.RateLimit, opts.RateInterval)
	}
	return ctl
}

// WsSignalConn is the relay-side transport of one member.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and joins the room named by ?room=.
// Every connection gets a fresh participant id.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	room, err := domain.NewRoomName(c.Query("room"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.MaxMessage)

	id := domain.NewParticipantID()
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("id", string(id)).Str("room", string(room)).Msg("new WS connection")

	sess := core.NewMemberSession(domain.NewMember(id, room), conn)
	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Join(sess, cancel); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("id", string(id)).Msg("join failed")
		cancel()
		conn.Close()
		return
	}
	ctl.Metrics.Connections.Inc()

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
