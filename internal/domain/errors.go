package domain

import "errors"

var (
	// ErrMediaUnavailable: capture device denied or missing. Fatal to join, retryable.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrSignalingUnavailable: relay unreachable or lost. Fatal to join, retryable.
	ErrSignalingUnavailable = errors.New("signaling unavailable")
	// ErrPeerConnectionFailed: negotiation or transport of a single peer broke.
	ErrPeerConnectionFailed = errors.New("peer connection failed")
	ErrMalformedSignal      = errors.New("malformed signal")
	ErrInvalidState         = errors.New("invalid session state")
	ErrPeerClosed           = errors.New("peer connection closed")
)

// ErrorKind classifies errors surfaced to the UI collaborator.
type ErrorKind string

const (
	KindMediaUnavailable     ErrorKind = "media_unavailable"
	KindSignalingUnavailable ErrorKind = "signaling_unavailable"
	KindPeerConnectionFailed ErrorKind = "peer_connection_failed"
	KindInvalidState         ErrorKind = "invalid_state"
)

// KindOf maps a wrapped sentinel to its ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMediaUnavailable):
		return KindMediaUnavailable
	case errors.Is(err, ErrSignalingUnavailable):
		return KindSignalingUnavailable
	case errors.Is(err, ErrPeerConnectionFailed):
		return KindPeerConnectionFailed
	}
	return KindInvalidState
}
