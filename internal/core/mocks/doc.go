// Package mocks holds generated gomock doubles for the core interfaces.
package mocks

//go:generate mockgen -destination=media_mock.go -package=mocks github.com/dkeye/meshcall/internal/core Capturer,CapturedTrack
//go:generate mockgen -destination=peer_mock.go -package=mocks github.com/dkeye/meshcall/internal/core PeerFactory,PeerConnection
//go:generate mockgen -destination=signal_mock.go -package=mocks github.com/dkeye/meshcall/internal/core SignalingChannel,SignalConnection
//go:generate mockgen -destination=observer_mock.go -package=mocks github.com/dkeye/meshcall/internal/core Observer
