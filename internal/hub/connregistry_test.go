package hub

import "testing"

func TestConnRegistryConnectAndSend(t *testing.T) {
	r := NewConnRegistry()
	s := &fakeSession{}
	if _, hadPrior := r.Connect(1, s); hadPrior {
		t.Fatalf("first connect reported a prior session")
	}

	if outcome := r.Send(1, []byte("hello")); outcome != Delivered {
		t.Fatalf("send outcome = %v, want Delivered", outcome)
	}
	if outcome := r.Send(2, []byte("hello")); outcome != Absent {
		t.Fatalf("send to unregistered user = %v, want Absent", outcome)
	}
}

func TestConnRegistrySendFailure(t *testing.T) {
	r := NewConnRegistry()
	s := &fakeSession{fail: true}
	r.Connect(1, s)
	if outcome := r.Send(1, []byte("x")); outcome != Failed {
		t.Fatalf("send outcome = %v, want Failed", outcome)
	}
}

func TestConnRegistrySupersedingConnect(t *testing.T) {
	r := NewConnRegistry()
	s1 := &fakeSession{}
	s2 := &fakeSession{}

	r.Connect(1, s1)
	prior, hadPrior := r.Connect(1, s2)
	if !hadPrior || prior != s1 {
		t.Fatalf("second connect didn't report s1 as prior")
	}

	got, ok := r.Get(1)
	if !ok || got != s2 {
		t.Fatalf("registry holds %v, want s2", got)
	}
}

func TestConnRegistryRemoveIdempotent(t *testing.T) {
	r := NewConnRegistry()
	r.Connect(1, &fakeSession{})
	if _, ok := r.Remove(1); !ok {
		t.Fatalf("first remove should report ok")
	}
	if _, ok := r.Remove(1); ok {
		t.Fatalf("second remove should be a no-op")
	}
	if r.IsConnected(1) {
		t.Fatalf("user still reported connected after removal")
	}
}

func TestConnRegistryRemoveIfGuardsStaleSession(t *testing.T) {
	r := NewConnRegistry()
	s1 := &fakeSession{}
	s2 := &fakeSession{}
	r.Connect(1, s1)
	r.Connect(1, s2) // s2 supersedes s1

	if ok := r.RemoveIf(1, s1); ok {
		t.Fatalf("RemoveIf succeeded against a superseded session")
	}
	if _, ok := r.Get(1); !ok {
		t.Fatalf("s2 should still be registered")
	}
	if ok := r.RemoveIf(1, s2); !ok {
		t.Fatalf("RemoveIf should succeed against the current session")
	}
}

func TestConnRegistryBroadcastExceptSkipsDeadPeers(t *testing.T) {
	r := NewConnRegistry()
	good := &fakeSession{}
	dead := &fakeSession{fail: true}
	r.Connect(1, good)
	r.Connect(2, dead)
	r.Connect(3, good)

	failed := r.BroadcastExcept([]byte("hi"), 3, true)
	if len(failed) != 1 {
		t.Fatalf("got %d failed recipients, want 1", len(failed))
	}
	if _, ok := failed[2]; !ok {
		t.Fatalf("expected user 2 (dead) in failed set, got %v", failed)
	}
	if len(good.received()) != 1 {
		t.Fatalf("good session didn't receive the broadcast")
	}
}

func TestConnRegistryBroadcastExceptZeroIsValidExclusion(t *testing.T) {
	r := NewConnRegistry()
	zero := &fakeSession{}
	other := &fakeSession{}
	r.Connect(0, zero)
	r.Connect(1, other)

	r.BroadcastExcept([]byte("x"), 0, true)
	if len(zero.received()) != 0 {
		t.Fatalf("user 0 should have been excluded from the broadcast")
	}
	if len(other.received()) != 1 {
		t.Fatalf("user 1 should have received the broadcast")
	}
}
