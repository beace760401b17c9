package rtc

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/meshcall/internal/domain"
	"github.com/dkeye/meshcall/internal/protocol"
	"github.com/pion/webrtc/v4"
)

const (
	payloadOffer     = "offer"
	payloadAnswer    = "answer"
	payloadCandidate = "candidate"
)

// payload is the negotiation blob carried inside a relay signal message.
type payload struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

func encodeDescription(d webrtc.SessionDescription) protocol.Payload {
	b, _ := json.Marshal(payload{Type: d.Type.String(), SDP: d.SDP})
	return b
}

func encodeCandidate(c webrtc.ICECandidateInit) protocol.Payload {
	b, _ := json.Marshal(payload{Type: payloadCandidate, Candidate: &c})
	return b
}

func decodePayload(raw protocol.Payload) (payload, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrMalformedSignal, err)
	}
	switch p.Type {
	case payloadOffer, payloadAnswer:
		if p.SDP == "" {
			return p, fmt.Errorf("%w: %s without sdp", domain.ErrMalformedSignal, p.Type)
		}
	case payloadCandidate:
		if p.Candidate == nil {
			return p, fmt.Errorf("%w: candidate without body", domain.ErrMalformedSignal)
		}
	default:
		return p, fmt.Errorf("%w: unknown payload type %q", domain.ErrMalformedSignal, p.Type)
	}
	return p, nil
}

func (p payload) description() webrtc.SessionDescription {
	t := webrtc.SDPTypeOffer
	if p.Type == payloadAnswer {
		t = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: t, SDP: p.SDP}
}
