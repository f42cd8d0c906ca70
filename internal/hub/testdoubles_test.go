package hub

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeSession is an in-memory Session double that records every frame it
// receives. Send can be configured to fail, to exercise the disconnect
// cascade without a real transport.
type fakeSession struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	closeCode int
	fail     bool
}

func (s *fakeSession) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("simulated send failure")
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func (s *fakeSession) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCode = code
	return nil
}

func (s *fakeSession) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = string(f)
	}
	return out
}

// fakeOracle is an in-memory MembershipOracle double keyed by plain maps.
type fakeOracle struct {
	members   map[int64][]int64 // group -> members
	usernames map[int64]string
	groupNames map[int64]string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		members:    make(map[int64][]int64),
		usernames:  make(map[int64]string),
		groupNames: make(map[int64]string),
	}
}

func (o *fakeOracle) addMember(groupID, userID int64) {
	o.members[groupID] = append(o.members[groupID], userID)
}

func (o *fakeOracle) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	for _, u := range o.members[groupID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (o *fakeOracle) Members(ctx context.Context, groupID int64) ([]int64, error) {
	return append([]int64(nil), o.members[groupID]...), nil
}

func (o *fakeOracle) GroupsOf(ctx context.Context, userID int64) ([]int64, error) {
	var groups []int64
	for g, members := range o.members {
		for _, u := range members {
			if u == userID {
				groups = append(groups, g)
				break
			}
		}
	}
	return groups, nil
}

func (o *fakeOracle) Username(ctx context.Context, userID int64) (string, bool, error) {
	name, ok := o.usernames[userID]
	return name, ok, nil
}

func (o *fakeOracle) GroupName(ctx context.Context, groupID int64) (string, bool, error) {
	name, ok := o.groupNames[groupID]
	return name, ok, nil
}

// connectFake connects a fresh fakeSession for userID and returns it.
func connectFake(h *Hub, userID int64) *fakeSession {
	s := &fakeSession{}
	h.Connect(context.Background(), userID, s)
	return s
}
