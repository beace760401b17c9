package http

import (
	"context"
	stdhttp "net/http"
	"path/filepath"

	"github.com/dkeye/meshcall/internal/adapters/ice"
	"github.com/dkeye/meshcall/internal/adapters/signal"
	"github.com/dkeye/meshcall/internal/app/orch"
	"github.com/dkeye/meshcall/internal/config"
	"github.com/dkeye/meshcall/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SignalOptions maps relay config onto the websocket controller options.
// Zero values fall back to the controller defaults.
func SignalOptions(rc config.RelayConfig) signal.Options {
	opts := signal.DefaultOptions()
	if rc.SendBuffer > 0 {
		opts.SendBuffer = rc.SendBuffer
	}
	if rc.WriteWait > 0 {
		opts.WriteWait = rc.WriteWait
	}
	if rc.PongWait > 0 {
		opts.PongWait = rc.PongWait
	}
	if rc.PingPeriod > 0 {
		opts.PingPeriod = rc.PingPeriod
	}
	if opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	if rc.ReadLimit > 0 {
		opts.MaxMessage = rc.ReadLimit
	}
	if rc.RateLimit >= 0 {
		opts.RateLimit = rc.RateLimit
	}
	if rc.RateInterval > 0 {
		opts.RateInterval = rc.RateInterval
	}
	return opts
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, m *metrics.Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(cfg.StaticPath, "index.html"))
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := signal.NewSignalWSController(o, m, SignalOptions(cfg.Relay))
	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, o.Rooms.List())
	})

	api.GET("/ice", func(c *gin.Context) {
		servers := ice.Build(cfg.ICE.URLs, cfg.ICE.Username, cfg.ICE.Credential)
		body, err := ice.ToJSON(servers)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("encode ice servers")
			c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "ice config unavailable"})
			return
		}
		c.Data(stdhttp.StatusOK, "application/json", body)
	})

	return r
}
