// Package ice turns configured relay server strings into pion ICE servers.
package ice

import (
	"encoding/json"
	"strings"

	"github.com/pion/webrtc/v4"
)

// FallbackSTUN keeps host/STUN connectivity available when no TURN relay is configured.
const FallbackSTUN = "stun:stun.l.google.com:19302"

// Build splits rawURLList on commas and normalizes every entry.
// Entries without a stun:, turn: or turns: scheme are assumed to be TURN relays.
// Credentials are attached to TURN entries only. When the result holds no
// TURN entry the public fallback STUN server is appended.
func Build(rawURLList, username, credential string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	hasTurn := false
	for _, url := range splitCommaSeparated(rawURLList) {
		if !hasScheme(url) {
			url = "turn:" + url
		}
		server := webrtc.ICEServer{URLs: []string{url}}
		if isTurn(url) {
			hasTurn = true
			if username != "" {
				server.Username = username
			}
			if credential != "" {
				server.Credential = credential
			}
		}
		servers = append(servers, server)
	}
	if !hasTurn {
		servers = append(servers, webrtc.ICEServer{URLs: []string{FallbackSTUN}})
	}
	return servers
}

// HasTurn reports whether any server carries a turn: or turns: url.
func HasTurn(servers []webrtc.ICEServer) bool {
	for _, s := range servers {
		for _, url := range s.URLs {
			if isTurn(url) {
				return true
			}
		}
	}
	return false
}

// MissingCredentials lists the TURN urls that lack a username or credential.
// pion refuses such servers when a peer connection is created.
func MissingCredentials(servers []webrtc.ICEServer) []string {
	var out []string
	for _, s := range servers {
		cred, _ := s.Credential.(string)
		for _, url := range s.URLs {
			if isTurn(url) && (s.Username == "" || cred == "") {
				out = append(out, url)
			}
		}
	}
	return out
}

type serverJSON struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ToJSON renders servers in the browser RTCIceServer shape.
func ToJSON(servers []webrtc.ICEServer) ([]byte, error) {
	out := make([]serverJSON, 0, len(servers))
	for _, s := range servers {
		cred, _ := s.Credential.(string)
		out = append(out, serverJSON{URLs: s.URLs, Username: s.Username, Credential: cred})
	}
	return json.Marshal(out)
}

func splitCommaSeparated(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func hasScheme(url string) bool {
	return strings.HasPrefix(url, "stun:") || isTurn(url)
}

func isTurn(url string) bool {
	return strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:")
}
