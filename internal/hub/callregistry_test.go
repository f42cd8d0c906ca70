package hub

import (
	"reflect"
	"testing"
)

func TestCallRegistryStartThenJoin(t *testing.T) {
	r := NewCallRegistry()

	roster, modality := r.Start(3, 1, Video)
	if !reflect.DeepEqual(roster, []int64{1}) {
		t.Fatalf("roster after start = %v, want [1]", roster)
	}
	if modality != Video {
		t.Fatalf("modality = %v, want video", modality)
	}

	roster2, modality2, wasIdle := r.Join(3, 2)
	if wasIdle {
		t.Fatalf("wasIdle = true, want false (call already active)")
	}
	if !reflect.DeepEqual(roster2, []int64{1, 2}) {
		t.Fatalf("roster after join = %v, want [1,2]", roster2)
	}
	if modality2 != Video {
		t.Fatalf("modality preserved across join = %v, want video", modality2)
	}
}

func TestCallRegistryJoinIdleDefaultsAudio(t *testing.T) {
	r := NewCallRegistry()
	roster, modality, wasIdle := r.Join(5, 9)
	if !wasIdle {
		t.Fatalf("wasIdle = false, want true")
	}
	if modality != Audio {
		t.Fatalf("modality = %v, want audio default", modality)
	}
	if !reflect.DeepEqual(roster, []int64{9}) {
		t.Fatalf("roster = %v, want [9]", roster)
	}
}

func TestCallRegistryJoinIsIdempotent(t *testing.T) {
	r := NewCallRegistry()
	r.Join(1, 1)
	roster, _, _ := r.Join(1, 1)
	if !reflect.DeepEqual(roster, []int64{1}) {
		t.Fatalf("second join changed roster: %v", roster)
	}
}

func TestCallRegistryLeaveTransitions(t *testing.T) {
	r := NewCallRegistry()
	r.Join(1, 10)
	r.Join(1, 20)

	result, roster, _ := r.Leave(1, 10)
	if result != Left {
		t.Fatalf("leave result = %v, want Left", result)
	}
	if !reflect.DeepEqual(roster, []int64{20}) {
		t.Fatalf("roster after leave = %v, want [20]", roster)
	}

	result2, _, _ := r.Leave(1, 20)
	if result2 != Ended {
		t.Fatalf("leave result = %v, want Ended", result2)
	}
	if r.IsActive(1) {
		t.Fatalf("group 1 still active after last participant left")
	}
	if _, ok := r.ModalityOf(1); ok {
		t.Fatalf("modality still recorded for ended call")
	}

	result3, _, _ := r.Leave(1, 99)
	if result3 != NotInCall {
		t.Fatalf("leave of absent user = %v, want NotInCall", result3)
	}
}

func TestCallRegistryDropUser(t *testing.T) {
	r := NewCallRegistry()
	r.Join(1, 7)
	r.Join(2, 7)
	r.Join(2, 8)

	outcomes := r.DropUser(7)
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		switch o.GroupID {
		case 1:
			if o.Result != Ended {
				t.Fatalf("group 1 result = %v, want Ended", o.Result)
			}
		case 2:
			if o.Result != Left {
				t.Fatalf("group 2 result = %v, want Left", o.Result)
			}
			if !reflect.DeepEqual(o.Roster, []int64{8}) {
				t.Fatalf("group 2 roster = %v, want [8]", o.Roster)
			}
		default:
			t.Fatalf("unexpected group %d in outcomes", o.GroupID)
		}
	}

	if r.IsIn(1, 7) || r.IsIn(2, 7) {
		t.Fatalf("user 7 still present after DropUser")
	}

	// DropUser on a user with no calls is a no-op.
	if outcomes := r.DropUser(404); outcomes != nil {
		t.Fatalf("DropUser for absent user returned %v, want nil", outcomes)
	}
}

func TestCallRegistryMultiCallParticipation(t *testing.T) {
	// Spec explicitly allows a user to be in more than one call at once.
	r := NewCallRegistry()
	r.Join(1, 1)
	r.Join(2, 1)
	if !r.IsIn(1, 1) || !r.IsIn(2, 1) {
		t.Fatalf("user should be able to join two groups' calls concurrently")
	}
}
