// Package rtc adapts pion/webrtc to core.PeerConnection.
package rtc

import (
	"time"

	"github.com/dkeye/meshcall/internal/core"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPLIInterval = 3 * time.Second

type Options struct {
	ICEServers []webrtc.ICEServer
	// PortMin and PortMax bound the ephemeral UDP range; zero means any.
	PortMin uint16
	PortMax uint16
	// NAT1To1IPs are advertised as host candidates instead of local addresses.
	NAT1To1IPs                 []string
	DisableDefaultInterceptors bool
	PLIInterval                time.Duration
	LogLevel                   zerolog.Level
}

// ModApiFun lets callers tweak the engines before the API is built.
type ModApiFun func(m *webrtc.MediaEngine, i *interceptor.Registry, s *webrtc.SettingEngine)

// Factory builds peer connections sharing one pion API.
type Factory struct {
	api         *webrtc.API
	conf        webrtc.Configuration
	pliInterval time.Duration
}

func NewFactory(opts Options, mod ModApiFun) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if !opts.DisableDefaultInterceptors {
		if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
			return nil, err
		}
	}

	s := webrtc.SettingEngine{LoggerFactory: NewPionLogger(log.Logger, opts.LogLevel)}
	if opts.PortMin > 0 && opts.PortMax >= opts.PortMin {
		if err := s.SetEphemeralUDPPortRange(opts.PortMin, opts.PortMax); err != nil {
			return nil, err
		}
	}
	if len(opts.NAT1To1IPs) > 0 {
		s.SetNAT1To1IPs(opts.NAT1To1IPs, webrtc.ICECandidateTypeHost)
		log.Info().Str("module", "rtc").Strs("ips", opts.NAT1To1IPs).Msg("NAT 1:1 mapping active")
	}

	if mod != nil {
		mod(m, i, &s)
	}

	pli := opts.PLIInterval
	if pli <= 0 {
		pli = defaultPLIInterval
	}

	servers := opts.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}

	return &Factory{
		api:         webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf:        webrtc.Configuration{ICEServers: servers},
		pliInterval: pli,
	}, nil
}

// NewPeer implements core.PeerFactory.
func (f *Factory) NewPeer(spec core.PeerSpec) (core.PeerConnection, error) {
	return newPeer(f, spec)
}

func (f *Factory) newPeerConnection() (*webrtc.PeerConnection, error) {
	return f.api.NewPeerConnection(f.conf)
}
