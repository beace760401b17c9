package domain

import (
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("acquire: %w", ErrMediaUnavailable), KindMediaUnavailable},
		{fmt.Errorf("dial: %w", ErrSignalingUnavailable), KindSignalingUnavailable},
		{fmt.Errorf("peer a: %w", ErrPeerConnectionFailed), KindPeerConnectionFailed},
		{ErrInvalidState, KindInvalidState},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestNewRoomName(t *testing.T) {
	name, err := NewRoomName("")
	if err != nil || name != DefaultRoom {
		t.Fatalf("empty room: got %q, %v", name, err)
	}
	if _, err := NewRoomName("0123456789012345678901234567890123456789"); err != ErrRoomNameTooLong {
		t.Fatalf("expected ErrRoomNameTooLong, got %v", err)
	}
}
