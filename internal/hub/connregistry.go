package hub

import (
	"sync"
)

// SendOutcome reports what happened to a unicast attempt.
type SendOutcome int

const (
	// Delivered means the frame was handed to the session's transport.
	Delivered SendOutcome = iota
	// Absent means no session is registered for that user.
	Absent
	// Failed means the session was registered but writing to it failed;
	// the caller is responsible for disconnecting that user.
	Failed
)

// Session is the opaque handle the Connection Registry holds per user. It
// is implemented by internal/transport against a real gorilla/websocket
// connection, and by a trivial in-memory stub in tests.
type Session interface {
	// Send writes one frame. Implementations must serialize concurrent
	// calls themselves if the underlying transport requires it.
	Send(frame []byte) error
	// Close terminates the session with an application-level close code.
	Close(code int, reason string) error
}

// ConnRegistry maps a live user_id to its Session. At most one Session is
// registered per user_id at any time; a new Connect replaces the prior one.
//
// ConnRegistry knows nothing about call rosters — it is a pure connection
// table. The cascade that removes a disconnecting user from every call
// roster is orchestrated by Hub, which holds both registries; this keeps
// ConnRegistry testable and reusable in isolation.
type ConnRegistry struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewConnRegistry returns an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{sessions: make(map[int64]Session)}
}

// Connect installs session as the live connection for userID. If a prior
// session was registered, it is returned (with ok=true) so the caller can
// close it with the "superseded" code and run the disconnect cascade for
// it before this call returns control — the registry itself only swaps
// the map entry atomically.
func (c *ConnRegistry) Connect(userID int64, session Session) (prior Session, hadPrior bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior, hadPrior = c.sessions[userID]
	c.sessions[userID] = session
	return prior, hadPrior
}

// Remove deletes the mapping for userID if present. Idempotent: removing
// an absent user is a no-op that reports ok=false.
func (c *ConnRegistry) Remove(userID int64) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if ok {
		delete(c.sessions, userID)
	}
	return s, ok
}

// RemoveIf deletes the mapping for userID only if the currently registered
// session is identical to expect. This guards against a disconnect cascade
// for a stale session racing with and clobbering a newer Connect.
func (c *ConnRegistry) RemoveIf(userID int64, expect Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok || s != expect {
		return false
	}
	delete(c.sessions, userID)
	return true
}

// IsConnected reports whether userID currently has a live session.
func (c *ConnRegistry) IsConnected(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[userID]
	return ok
}

// Get returns the session registered for userID, if any.
func (c *ConnRegistry) Get(userID int64) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	return s, ok
}

// Send serializes frame to userID's session. On I/O failure the caller
// must treat this as the trigger for a disconnect of userID — Send itself
// does not mutate the registry, since disconnecting requires the Call
// Registry cascade that lives one layer up in Hub.
func (c *ConnRegistry) Send(userID int64, frame []byte) SendOutcome {
	session, ok := c.Get(userID)
	if !ok {
		return Absent
	}
	if err := session.Send(frame); err != nil {
		return Failed
	}
	return Delivered
}

// BroadcastExcept sends frame to every connected session except
// excludeUserID (when hasExclude is true — 0 is a valid, excludable id).
// It never holds the registry lock while sending: the recipient list is
// snapshotted under the lock, then released before any I/O, so that a slow
// or dead peer cannot block delivery to the others. Returns the sessions
// for which delivery failed, keyed by user_id, so the caller can schedule
// their disconnects after the broadcast completes rather than recursing
// mid-broadcast, and so RemoveIf can confirm it's retiring the exact
// session that failed.
func (c *ConnRegistry) BroadcastExcept(frame []byte, excludeUserID int64, hasExclude bool) (failed map[int64]Session) {
	c.mu.Lock()
	recipients := make(map[int64]Session, len(c.sessions))
	for uid, s := range c.sessions {
		if hasExclude && uid == excludeUserID {
			continue
		}
		recipients[uid] = s
	}
	c.mu.Unlock()

	for uid, s := range recipients {
		if err := s.Send(frame); err != nil {
			if failed == nil {
				failed = make(map[int64]Session)
			}
			failed[uid] = s
		}
	}
	return failed
}

// UnicastAll sends frame to each user_id in targets, regardless of group
// membership — used to notify a call roster or a full group membership
// list where the targets are already known rather than "everyone except
// one sender". Returns the sessions for which delivery failed.
func (c *ConnRegistry) UnicastAll(frame []byte, targets []int64) (failed map[int64]Session) {
	for _, uid := range targets {
		session, ok := c.Get(uid)
		if !ok {
			continue
		}
		if err := session.Send(frame); err != nil {
			if failed == nil {
				failed = make(map[int64]Session)
			}
			failed[uid] = session
		}
	}
	return failed
}

// Snapshot returns the set of currently connected user_ids. Used by
// shutdown to close every session.
func (c *ConnRegistry) Snapshot() map[int64]Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]Session, len(c.sessions))
	for k, v := range c.sessions {
		out[k] = v
	}
	return out
}
