package main

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/meshcall/internal/adapters/channel"
	"github.com/dkeye/meshcall/internal/adapters/ice"
	"github.com/dkeye/meshcall/internal/adapters/media"
	"github.com/dkeye/meshcall/internal/adapters/rtc"
	"github.com/dkeye/meshcall/internal/app"
	"github.com/dkeye/meshcall/internal/config"
	"github.com/dkeye/meshcall/internal/core"
)

const statsPeriod = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("client", pflag.ExitOnError)
	configPath := flags.String("config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	flags.String("relay-url", "ws://localhost:8080/api/ws/signal", "relay websocket endpoint")
	flags.String("room", "main", "room to join")
	flags.String("media", "synthetic", "capture source: synthetic or device")
	flags.Bool("mute-audio", false, "join with the microphone muted")
	flags.Bool("mute-video", false, "join with the camera off")
	flags.String("ice-urls", "", "comma-separated ICE relay urls")
	flags.String("log-level", "info", "log level")
	_ = flags.Parse(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, _, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.ApplyLogLevel(cfg.LogLevel)

	endpoint, err := relayEndpoint(cfg.Client.RelayURL, cfg.Client.Room)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.Client.RelayURL).Msg("bad relay url")
	}

	servers := ice.Build(cfg.ICE.URLs, cfg.ICE.Username, cfg.ICE.Credential)
	log.Info().Int("servers", len(servers)).Bool("turn", ice.HasTurn(servers)).Msg("ice servers")
	if missing := ice.MissingCredentials(servers); len(missing) > 0 {
		log.Warn().Strs("urls", missing).Msg("turn servers without credentials, peer connections will fail")
	}

	factory, err := rtc.NewFactory(rtc.Options{
		ICEServers:  servers,
		PortMin:     cfg.WebRTC.PortMin,
		PortMax:     cfg.WebRTC.PortMax,
		NAT1To1IPs:  cfg.WebRTC.NAT1To1IPs,
		PLIInterval: cfg.WebRTC.PLIInterval,
		LogLevel:    cfg.WebRTC.PionLevel(),
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc setup failed")
	}

	var capturer core.Capturer = media.NewSyntheticCapturer()
	if cfg.Client.Media == "device" {
		capturer = media.NewDeviceCapturer()
	}
	mediaManager := media.NewManager(capturer)

	obs := newLogObserver()
	ctl := app.NewController(endpoint, mediaManager, channel.New(channel.DefaultOptions()), factory, obs)
	obs.onLocal = func() {
		if cfg.Client.MuteAudio {
			ctl.SetAudioEnabled(false)
		}
		if cfg.Client.MuteVideo {
			ctl.SetVideoEnabled(false)
		}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := ctl.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-obs.idle:
			log.Info().Msg("session ended")
			stop()
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(statsPeriod)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				logStats(ctl, mediaManager)
			}
		}
	})

	log.Info().Str("endpoint", endpoint).Str("media", cfg.Client.Media).Msg("joining")
	ctl.Join()

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("client stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("client exited")
}

func relayEndpoint(raw, room string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if room != "" {
		q := u.Query()
		q.Set("room", room)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func logStats(ctl *app.Controller, m *media.Manager) {
	ev := log.Info().Str("state", ctl.State().String()).Int("peers", len(ctl.Participants()))
	if src := m.Source(); src != nil {
		for _, tr := range src.LocalTracks() {
			kind := string(tr.Kind())
			ev = ev.Uint64(kind+"_captured", tr.Captured()).Uint64(kind+"_sent", tr.Sent()).Bool(kind+"_enabled", tr.Enabled())
		}
	}
	ev.Msg("stats")
}
