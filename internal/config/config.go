package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	LogLevel   string `mapstructure:"log_level"`

	Relay  RelayConfig  `mapstructure:"relay"`
	ICE    ICEConfig    `mapstructure:"ice"`
	WebRTC WebRTCConfig `mapstructure:"webrtc"`
	Client ClientConfig `mapstructure:"client"`
}

type RelayConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	SignalDelivery string        `mapstructure:"signal_delivery"`
	Backpressure   string        `mapstructure:"backpressure"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateInterval   time.Duration `mapstructure:"rate_interval"`
}

// ICEConfig holds the raw ICE inputs; URLs is a comma-separated list.
type ICEConfig struct {
	URLs       string `mapstructure:"urls"`
	Username   string `mapstructure:"username"`
	Credential string `mapstructure:"credential"`
}

type WebRTCConfig struct {
	PortMin     uint16        `mapstructure:"port_min"`
	PortMax     uint16        `mapstructure:"port_max"`
	NAT1To1IPs  []string      `mapstructure:"nat_1to1_ips"`
	PLIInterval time.Duration `mapstructure:"pli_interval"`
	LogLevel    string        `mapstructure:"log_level"`
}

type ClientConfig struct {
	RelayURL  string `mapstructure:"relay_url"`
	Room      string `mapstructure:"room"`
	Media     string `mapstructure:"media"`
	MuteAudio bool   `mapstructure:"mute_audio"`
	MuteVideo bool   `mapstructure:"mute_video"`
}

// flagKeys maps command line flags to config keys. Flags missing from the
// given set are skipped.
var flagKeys = map[string]string{
	"mode":       "mode",
	"port":       "port",
	"log-level":  "log_level",
	"relay-url":  "client.relay_url",
	"room":       "client.room",
	"media":      "client.media",
	"mute-audio": "client.mute_audio",
	"mute-video": "client.mute_video",
	"ice-urls":   "ice.urls",
}

// envAliases are the variable names used by existing deployments.
var envAliases = map[string]string{
	"client.relay_url": "WEBRTC_URL",
	"ice.urls":         "ICE_SERVER_URL",
	"ice.username":     "ICE_SERVER_USERNAME",
	"ice.credential":   "ICE_SERVER_CREDENTIAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")

	v.SetDefault("relay.read_limit", 65536)
	v.SetDefault("relay.ping_period", "30s")
	v.SetDefault("relay.pong_wait", "60s")
	v.SetDefault("relay.write_wait", "5s")
	v.SetDefault("relay.send_buffer", 32)
	v.SetDefault("relay.signal_delivery", "direct")
	v.SetDefault("relay.backpressure", "kick")
	v.SetDefault("relay.rate_limit", 200)
	v.SetDefault("relay.rate_interval", "1s")

	v.SetDefault("webrtc.pli_interval", "3s")
	v.SetDefault("webrtc.log_level", "warn")

	v.SetDefault("client.relay_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("client.room", "main")
	v.SetDefault("client.media", "synthetic")
}

// Load reads config/config.<CONFIG_ENV>.yaml (or path when set), then env,
// then flags. The returned viper instance can be passed to Watch.
func Load(path string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, "VOICE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the file on change and hands the new config to onChange.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Msg("reload failed")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config reloaded")
		onChange(cfg)
	})
	v.WatchConfig()
}

// ApplyLogLevel sets the global zerolog level; unknown names keep the current one.
func ApplyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("module", "config").Str("level", level).Msg("unknown log level")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

// PionLevel parses the webrtc log level, defaulting to warn.
func (c WebRTCConfig) PionLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.WarnLevel
	}
	return lvl
}
