package hub

import (
	"context"
	"testing"
)

func TestConnectDisconnectRoundTrip(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()

	s1 := &fakeSession{}
	h.Connect(ctx, 1, s1)
	h.Disconnect(1, s1, nil)

	s2 := &fakeSession{}
	h.Connect(ctx, 1, s2)
	h.Disconnect(1, s2, nil)

	if h.Conns.IsConnected(1) {
		t.Fatalf("registry should be empty after the round trip")
	}
	if h.Calls.Count() != 0 {
		t.Fatalf("call registry should be unaffected by a user with no calls")
	}
}

func TestDisconnectStaleSessionIsNoop(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()

	s1 := &fakeSession{}
	h.Connect(ctx, 1, s1)
	s2 := &fakeSession{}
	h.Connect(ctx, 1, s2) // s1 now superseded

	// A disconnect referencing the stale s1 must not remove s2.
	h.Disconnect(1, s1, nil)
	if !h.Conns.IsConnected(1) {
		t.Fatalf("stale disconnect should not have removed the current session")
	}
}
