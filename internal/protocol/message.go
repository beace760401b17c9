// Package protocol defines the JSON frames exchanged between call clients
// and the relay. Every frame is an object with a "type" discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/meshcall/internal/domain"
)

type MessageType string

const (
	TypeIntroduction     MessageType = "introduction"
	TypeNewUserConnected MessageType = "newUserConnected"
	TypeUserDisconnected MessageType = "userDisconnected"
	TypeSignal           MessageType = "signal"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
	TypeError            MessageType = "error"
)

var ErrUnknownType = errors.New("unknown message type")

// Payload is an opaque negotiation blob (SDP or ICE candidate).
type Payload = json.RawMessage

// Message is the union of every frame. Unused fields are omitted on the wire.
type Message struct {
	Type     MessageType            `json:"type"`
	SelfID   domain.ParticipantID   `json:"selfId,omitempty"`
	OtherIDs []domain.ParticipantID `json:"otherIds,omitempty"`
	ID       domain.ParticipantID   `json:"id,omitempty"`
	To       domain.ParticipantID   `json:"to,omitempty"`
	From     domain.ParticipantID   `json:"from,omitempty"`
	Payload  Payload                `json:"payload,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func Introduction(self domain.ParticipantID, others []domain.ParticipantID) Message {
	return Message{Type: TypeIntroduction, SelfID: self, OtherIDs: others}
}

func NewUserConnected(id domain.ParticipantID) Message {
	return Message{Type: TypeNewUserConnected, ID: id}
}

func UserDisconnected(id domain.ParticipantID) Message {
	return Message{Type: TypeUserDisconnected, ID: id}
}

func Signal(to, from domain.ParticipantID, payload Payload) Message {
	return Message{Type: TypeSignal, To: to, From: from, Payload: payload}
}

func Error(reason string) Message {
	return Message{Type: TypeError, Error: reason}
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a frame and checks the fields its type requires.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", domain.ErrMalformedSignal, err)
	}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) validate() error {
	switch m.Type {
	case TypeIntroduction:
		if m.SelfID == "" {
			return fmt.Errorf("%w: introduction without selfId", domain.ErrMalformedSignal)
		}
	case TypeNewUserConnected, TypeUserDisconnected:
		if m.ID == "" {
			return fmt.Errorf("%w: %s without id", domain.ErrMalformedSignal, m.Type)
		}
	case TypeSignal:
		if m.To == "" || len(m.Payload) == 0 {
			return fmt.Errorf("%w: signal without to/payload", domain.ErrMalformedSignal)
		}
	case TypePing, TypePong, TypeError:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}
