package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/meshcall/internal/adapters/http"
	"github.com/dkeye/meshcall/internal/adapters/ice"
	"github.com/dkeye/meshcall/internal/app/orch"
	"github.com/dkeye/meshcall/internal/config"
	"github.com/dkeye/meshcall/internal/metrics"
)

func main() {
	flags := pflag.NewFlagSet("relay", pflag.ExitOnError)
	configPath := flags.String("config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	flags.String("mode", "release", "gin mode: debug, release or test")
	flags.Int("port", 8080, "listen port")
	flags.String("log-level", "info", "log level")
	flags.String("ice-urls", "", "comma-separated ICE relay urls served on /api/ice")
	_ = flags.Parse(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, v, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.ApplyLogLevel(cfg.LogLevel)
	config.Watch(v, func(next *config.Config) {
		config.ApplyLogLevel(next.LogLevel)
	})

	delivery, err := orch.ParseDelivery(cfg.Relay.SignalDelivery)
	if err != nil {
		log.Fatal().Err(err).Msg("bad relay config")
	}
	policy, err := orch.ParsePolicy(cfg.Relay.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("bad relay config")
	}

	if missing := ice.MissingCredentials(ice.Build(cfg.ICE.URLs, cfg.ICE.Username, cfg.ICE.Credential)); len(missing) > 0 {
		log.Warn().Strs("urls", missing).Msg("turn servers without credentials, clients will fail to create peer connections")
	}

	m := metrics.NewRelay()
	o := orch.New(orch.NewRoomManager(), policy, delivery, m)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(ctx, cfg, o, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("delivery", cfg.Relay.SignalDelivery).Msg("relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("relay stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("relay exited gracefully")
}
