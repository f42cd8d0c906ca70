package hub

import (
	"context"

	"github.com/rs/zerolog"
)

// CloseSuperseded is the application-level WebSocket close code sent to a
// session that has just been replaced by a newer connection for the same
// user_id.
const CloseSuperseded = 4000

// Config tunes behavior the spec calls out as a deliberate, documented
// decision rather than a silent change from the original implementation.
type Config struct {
	// RelayMalformedAsText controls the preserved quirk: on malformed
	// JSON input, the original both sends an error envelope to the
	// sender and relays the raw payload to everyone else as a "text"
	// frame. The zero value disables the relay; config.Config defaults
	// this to true, matching the original.
	RelayMalformedAsText bool
}

// Hub is the process-wide signaling coordinator: the single object that
// owns the Connection Registry and Call Registry and orchestrates the
// cascades between them. It is constructed once at process start and
// passed explicitly to every session — never a package-level singleton.
type Hub struct {
	Conns  *ConnRegistry
	Calls  *CallRegistry
	Oracle MembershipOracle
	Router *Router
	log    zerolog.Logger
	cfg    Config
}

// New builds a Hub wired to the given membership oracle and logger.
func New(oracle MembershipOracle, log zerolog.Logger, cfg Config) *Hub {
	h := &Hub{
		Conns:  NewConnRegistry(),
		Calls:  NewCallRegistry(),
		Oracle: oracle,
		log:    log,
		cfg:    cfg,
	}
	h.Router = NewRouter(h)
	return h
}

// Connect registers session as the live connection for userID. If a prior
// session existed it is closed with CloseSuperseded and its participation
// in every call roster is torn down (the disconnect cascade) before this
// call returns — per the spec, a superseding connect must leave the new
// session with a clean slate, not inheriting the old session's rosters.
// On success, Connect runs the Presence Notifier for userID before
// returning, so the caller's receive loop only starts after any
// ongoing-group-calls envelope has already been sent.
func (h *Hub) Connect(ctx context.Context, userID int64, session Session) {
	prior, hadPrior := h.Conns.Connect(userID, session)
	if hadPrior && prior != session {
		_ = prior.Close(CloseSuperseded, "superseded by new connection")
		h.cascade(userID, nil)
	}
	h.notifyPresence(ctx, userID)
}

// Disconnect tears down userID's session: removes it from the Connection
// Registry (only if session is still the one registered — a stale
// disconnect racing a newer Connect must not clobber it), then cascades
// through the Call Registry, emitting the derived group-call-leave /
// group-call-ended notifications, and finally broadcasts user_left to
// everyone still connected. causeErr is non-nil when disconnect was
// triggered by an unexpected read error rather than a clean close; its
// text is carried on the user_left envelope per the supplemented
// disconnect-path exception behavior.
func (h *Hub) Disconnect(userID int64, session Session, causeErr error) {
	if ok := h.Conns.RemoveIf(userID, session); !ok {
		return
	}
	h.cascade(userID, causeErr)
}

// cascade runs the Call Registry leave transitions for userID, emits the
// derived notifications, then broadcasts user_left. Any session whose
// send fails along the way is queued and processed after this round
// completes — iteratively, never by recursing back into cascade — which
// keeps cascades triggered by a pile of simultaneously-dead peers bounded
// to a single pass per victim instead of a nested call stack.
func (h *Hub) cascade(userID int64, causeErr error) {
	queue := h.cascadeOnce(userID, causeErr)
	for i := 0; i < len(queue); i++ {
		uid := queue[i]
		if _, ok := h.Conns.Remove(uid); !ok {
			continue
		}
		queue = append(queue, h.cascadeOnce(uid, nil)...)
	}
}

// cascadeOnce performs one user's call-registry leave transitions and
// notifications, returning the user_ids whose delivery failed during it.
// It assumes userID has already been removed from the Connection
// Registry by the caller.
func (h *Hub) cascadeOnce(userID int64, causeErr error) []int64 {
	var failedUsers []int64
	note := func(failed map[int64]Session) {
		for uid := range failed {
			failedUsers = append(failedUsers, uid)
		}
	}

	for _, o := range h.Calls.DropUser(userID) {
		switch o.Result {
		case Ended:
			frame, _ := Envelope{
				"type":    "group-call-ended",
				"groupId": o.GroupID,
				"userId":  userID,
				"reason":  "Last participant disconnected",
			}.Marshal()
			members, err := h.Oracle.Members(context.Background(), o.GroupID)
			if err != nil {
				h.log.Warn().Err(err).Int64("group_id", o.GroupID).Msg("membership lookup failed during disconnect cascade")
				continue
			}
			note(h.Conns.UnicastAll(frame, members))
		case Left:
			frame, _ := Envelope{"type": "group-call-leave", "groupId": o.GroupID, "userId": userID}.Marshal()
			note(h.Conns.UnicastAll(frame, o.Roster))
		case NotInCall:
			// nothing to notify
		}
	}

	userLeft := Envelope{"type": "user_left", "user_id": userID}
	if causeErr != nil {
		userLeft["error"] = causeErr.Error()
	}
	frame, _ := userLeft.Marshal()
	note(h.Conns.BroadcastExcept(frame, userID, true))
	return failedUsers
}

// ActiveCallCount reports the number of groups with an in-progress call,
// read by internal/metrics at scrape time.
func (h *Hub) ActiveCallCount() int {
	return h.Calls.Count()
}

// ConnectedSessionCount reports the number of live sessions, read by
// internal/metrics at scrape time.
func (h *Hub) ConnectedSessionCount() int {
	return len(h.Conns.Snapshot())
}

// Shutdown closes every live session, used at process shutdown. Best
// effort: a close failure on one session doesn't stop the others.
func (h *Hub) Shutdown() {
	for uid, s := range h.Conns.Snapshot() {
		if err := s.Close(1001, "server shutting down"); err != nil {
			h.log.Debug().Err(err).Int64("user_id", uid).Msg("error closing session during shutdown")
		}
	}
}
