package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Relay.PingPeriod != 30*time.Second || cfg.Relay.SignalDelivery != "direct" {
		t.Fatalf("relay defaults %+v", cfg.Relay)
	}
	if cfg.Client.Room != "main" || cfg.Client.Media != "synthetic" {
		t.Fatalf("client defaults %+v", cfg.Client)
	}
	if cfg.ICE.URLs != "" {
		t.Fatalf("ice urls should default empty, got %q", cfg.ICE.URLs)
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := []byte(`
mode: debug
port: 9000
relay:
  signal_delivery: broadcast
  rate_limit: 5
webrtc:
  port_min: 50000
  port_max: 50100
client:
  room: from-file
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ICE_SERVER_URL", "turn.example.com, stun:stun.example.com")
	t.Setenv("ICE_SERVER_USERNAME", "user")
	t.Setenv("VOICE_ICE_CREDENTIAL", "secret")
	t.Setenv("WEBRTC_URL", "ws://relay.example.com/api/ws/signal")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("room", "", "")
	fs.Bool("mute-audio", false, "")
	if err := fs.Parse([]string{"--room", "from-flag", "--mute-audio"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(path, fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "debug" || cfg.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Relay.SignalDelivery != "broadcast" || cfg.Relay.RateLimit != 5 {
		t.Fatalf("relay %+v", cfg.Relay)
	}
	if cfg.WebRTC.PortMin != 50000 || cfg.WebRTC.PortMax != 50100 {
		t.Fatalf("webrtc %+v", cfg.WebRTC)
	}
	if cfg.ICE.URLs != "turn.example.com, stun:stun.example.com" || cfg.ICE.Username != "user" || cfg.ICE.Credential != "secret" {
		t.Fatalf("ice %+v", cfg.ICE)
	}
	if cfg.Client.RelayURL != "ws://relay.example.com/api/ws/signal" {
		t.Fatalf("relay url %q", cfg.Client.RelayURL)
	}
	if cfg.Client.Room != "from-flag" || !cfg.Client.MuteAudio {
		t.Fatalf("flags not applied: %+v", cfg.Client)
	}
}

func TestPionLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.WarnLevel},
		{"debug", zerolog.DebugLevel},
		{"nonsense", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := (WebRTCConfig{LogLevel: tt.in}).PionLevel(); got != tt.want {
			t.Errorf("PionLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
