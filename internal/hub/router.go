package hub

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

var directCallTypes = map[string]bool{
	"call_offer":    true,
	"call_answer":   true,
	"call_rejected": true,
	"call_busy":     true,
	"call_ended":    true,
	// "candidate" is direct-call only when no groupId is present; handled
	// specially in Dispatch.
}

var groupCallTypes = map[string]bool{
	"group-call-start":      true,
	"group-call-join":       true,
	"group-call-leave":      true,
	"group-call-offer":      true,
	"group-call-answer":     true,
	"group-ice-candidate":   true,
	"group-call-busy":       true,
	"group-call-user-joined": true,
	"group-call-ended":      true,
	// "candidate" is group-call when groupId is present; handled specially.
}

// Router implements the Message Router (§4.E): classifies every inbound
// envelope and dispatches it per the routing rule for its class. It holds
// no state of its own beyond a Hub reference — all mutation goes through
// Hub.Conns / Hub.Calls so that concurrent dispatches from different
// sessions see a consistent view.
type Router struct {
	hub *Hub
	log zerolog.Logger
}

func NewRouter(h *Hub) *Router {
	return &Router{hub: h, log: h.log}
}

// Dispatch parses one inbound frame from senderID and routes it. It never
// returns an error to the caller — all failure modes are surfaced to the
// sender as an "error" envelope per §7, and the session is kept open.
func (rt *Router) Dispatch(ctx context.Context, senderID int64, raw []byte) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		rt.handleMalformed(senderID, raw, err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			rt.sendError(senderID, fmt.Sprintf("Error processing your message: %v", r))
		}
	}()

	rt.autofillSenderUsername(ctx, senderID, env)

	msgType := env.Type()
	groupID, hasGroup, gErr := env.GroupID()
	if gErr != nil {
		rt.sendError(senderID, gErr.Error())
		return
	}

	switch {
	case msgType == "candidate" && hasGroup:
		rt.dispatchGroupCall(ctx, senderID, msgType, groupID, env)
	case msgType == "candidate":
		rt.dispatchDirectCall(senderID, msgType, env)
	case directCallTypes[msgType]:
		rt.dispatchDirectCall(senderID, msgType, env)
	case groupCallTypes[msgType]:
		rt.dispatchGroupCallRequireID(ctx, senderID, msgType, env)
	case msgType == "chat_message":
		rt.dispatchChat(senderID, env)
	case msgType == "join":
		rt.dispatchJoin(ctx, senderID, env)
	default:
		// Forward-compatible pass-through: group-* types not in the
		// explicit table still route like group-call, everything else
		// is best-effort broadcast-except-sender.
		if hasGroupPrefix(msgType) && hasGroup {
			rt.dispatchGroupCall(ctx, senderID, msgType, groupID, env)
		} else {
			rt.broadcastExceptSender(senderID, env)
		}
	}
}

func hasGroupPrefix(msgType string) bool {
	return len(msgType) > 6 && msgType[:6] == "group-"
}

// handleMalformed implements the preserved quirk: malformed JSON produces
// both an error envelope to the sender and a best-effort relay of the raw
// payload as a "text" frame, unless Config.RelayMalformedAsText is false.
func (rt *Router) handleMalformed(senderID int64, raw []byte, parseErr error) {
	rt.sendError(senderID, fmt.Sprintf("invalid message: %v", parseErr))
	if !rt.hub.cfg.RelayMalformedAsText {
		return
	}
	frame, err := Envelope{
		"type":          "text",
		"from_user_id":  senderID,
		"content":       string(raw),
	}.Marshal()
	if err != nil {
		return
	}
	rt.fanoutExceptSender(senderID, frame)
}

func (rt *Router) sendError(senderID int64, detail string) {
	frame, err := NewError(detail).Marshal()
	if err != nil {
		rt.log.Error().Err(err).Msg("failed to marshal error envelope")
		return
	}
	rt.deliverUnicast(senderID, frame)
}

// autofillSenderUsername fills sender_username from the oracle whenever
// the inbound envelope doesn't already carry one — applied to every
// envelope class, matching the original's behavior across all message
// types rather than only group-call signaling.
func (rt *Router) autofillSenderUsername(ctx context.Context, senderID int64, env Envelope) {
	if _, ok := env.GetString("sender_username"); ok {
		return
	}
	name, ok, err := rt.hub.Oracle.Username(ctx, senderID)
	if err != nil || !ok {
		return
	}
	env.Set("sender_username", name)
}

// dispatchDirectCall handles class 1 (§4.E.1): unicast to an explicit
// target, stamping "from". Missing target is an error back to the
// sender; it is never broadcast.
func (rt *Router) dispatchDirectCall(senderID int64, msgType string, env Envelope) {
	target, ok, err := env.Target()
	if err != nil {
		rt.sendError(senderID, err.Error())
		return
	}
	if !ok {
		rt.sendError(senderID, fmt.Sprintf("%s requires a target (to/targetUserId)", msgType))
		return
	}
	env.Set("from", senderID)
	frame, err := env.Marshal()
	if err != nil {
		rt.sendError(senderID, "failed to encode message")
		return
	}
	rt.deliverUnicast(target, frame)
}

// dispatchGroupCallRequireID validates a groupId is present before
// handing off to dispatchGroupCall — used for the types whose spec entry
// unconditionally requires groupId (everything except the dual-purpose
// "candidate" type, which Dispatch already routed only when present).
func (rt *Router) dispatchGroupCallRequireID(ctx context.Context, senderID int64, msgType string, env Envelope) {
	groupID, ok, err := env.GroupID()
	if err != nil {
		rt.sendError(senderID, err.Error())
		return
	}
	if !ok {
		rt.sendError(senderID, fmt.Sprintf("%s requires a groupId", msgType))
		return
	}
	rt.dispatchGroupCall(ctx, senderID, msgType, groupID, env)
}

// dispatchGroupCall implements class 2 (§4.E.2): the membership
// authorization gate, then per-type lifecycle/broadcast rules.
func (rt *Router) dispatchGroupCall(ctx context.Context, senderID int64, msgType string, groupID int64, env Envelope) {
	isMember, err := rt.hub.Oracle.IsMember(ctx, senderID, groupID)
	if err != nil {
		rt.sendError(senderID, "membership check failed")
		return
	}
	if !isMember {
		rt.sendError(senderID, fmt.Sprintf("You are not a member of group %d.", groupID))
		return
	}

	env.Set("groupId", groupID)
	env.Set("userId", senderID)

	switch msgType {
	case "group-call-start":
		rt.handleGroupCallStart(ctx, senderID, groupID, env)
	case "group-call-join":
		rt.handleGroupCallJoin(senderID, groupID, env)
	case "group-call-leave":
		rt.handleGroupCallLeave(ctx, senderID, groupID, env)
	case "group-call-offer", "group-call-answer":
		rt.handleGroupCallOfferAnswer(senderID, groupID, env)
	case "group-ice-candidate", "candidate":
		// Pure broadcast: candidate is not a state-transition trigger, and
		// the recipients are the existing roster regardless of whether the
		// sender itself is in it.
		rt.broadcastToParticipantsExceptSender(senderID, groupID, env)
	case "group-call-busy":
		rt.handleGroupCallBusy(senderID, groupID, env)
	default:
		// Forward-compatible group-* pass-through.
		rt.broadcastToParticipantsExceptSender(senderID, groupID, env)
	}
}

func (rt *Router) handleGroupCallStart(ctx context.Context, senderID, groupID int64, env Envelope) {
	modality := Audio
	if isVideo, ok := env.GetBool("isVideo"); ok && isVideo {
		modality = Video
	}
	rt.hub.Calls.Start(groupID, senderID, modality)

	members, err := rt.hub.Oracle.Members(ctx, groupID)
	if err != nil {
		rt.sendError(senderID, "membership lookup failed")
		return
	}
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	others := excludeID(members, senderID)
	rt.deliverUnicastAll(others, frame)
}

func (rt *Router) handleGroupCallJoin(senderID, groupID int64, env Envelope) {
	roster, _, _ := rt.hub.Calls.Join(groupID, senderID)
	env.Set("activeParticipants", roster)
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	others := excludeID(roster, senderID)
	rt.deliverUnicastAll(others, frame)
}

func (rt *Router) handleGroupCallLeave(ctx context.Context, senderID, groupID int64, env Envelope) {
	result, roster, _ := rt.hub.Calls.Leave(groupID, senderID)
	switch result {
	case Ended:
		members, err := rt.hub.Oracle.Members(ctx, groupID)
		if err != nil {
			rt.sendError(senderID, "membership lookup failed")
			return
		}
		endedFrame, err := Envelope{
			"type":    "group-call-ended",
			"groupId": groupID,
			"userId":  senderID,
			"reason":  "Last participant left the call",
		}.Marshal()
		if err != nil {
			return
		}
		rt.deliverUnicastAll(members, endedFrame)
	case Left:
		frame, err := env.Marshal()
		if err != nil {
			return
		}
		rt.deliverUnicastAll(roster, frame)
	case NotInCall:
		rt.sendError(senderID, fmt.Sprintf("you are not in the call for group %d", groupID))
	}
}

func (rt *Router) handleGroupCallOfferAnswer(senderID, groupID int64, env Envelope) {
	rt.ensureInCall(senderID, groupID)

	target, ok, err := env.Target()
	if err != nil {
		rt.sendError(senderID, err.Error())
		return
	}
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	if ok {
		rt.deliverUnicast(target, frame)
		return
	}
	rt.broadcastToParticipantsExceptSender(senderID, groupID, env)
}

func (rt *Router) handleGroupCallBusy(senderID, groupID int64, env Envelope) {
	target, ok, err := env.Target()
	if err != nil {
		rt.sendError(senderID, err.Error())
		return
	}
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	if ok {
		rt.deliverUnicast(target, frame)
		return
	}
	rt.broadcastToParticipantsExceptSender(senderID, groupID, env)
}

// ensureInCall implicitly joins senderID to groupID's roster if they
// aren't already in it, per the group-call-offer/answer rule.
func (rt *Router) ensureInCall(senderID, groupID int64) {
	if !rt.hub.Calls.IsIn(groupID, senderID) {
		rt.hub.Calls.Join(groupID, senderID)
	}
}

func (rt *Router) broadcastToParticipantsExceptSender(senderID, groupID int64, env Envelope) {
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	roster := rt.hub.Calls.Participants(groupID)
	others := excludeID(roster, senderID)
	rt.deliverUnicastAll(others, frame)
}

// dispatchChat implements class 3 (§4.E.3): unicast if targeted, else
// broadcast-except-sender. The router only relays; persistence is the
// REST layer's job (internal/api + internal/store), not the router's.
func (rt *Router) dispatchChat(senderID int64, env Envelope) {
	frame, err := env.Marshal()
	if err != nil {
		rt.sendError(senderID, "failed to encode message")
		return
	}
	target, ok, err := env.Target()
	if err != nil {
		rt.sendError(senderID, err.Error())
		return
	}
	if ok {
		rt.deliverUnicast(target, frame)
		return
	}
	rt.fanoutExceptSender(senderID, frame)
}

// dispatchJoin implements the "join" session-local announce hint (§4.E.4).
// The announced username may be overridden by the envelope's own
// "username" field (a display-name change taking effect without
// reconnecting), falling back to the oracle's registered name.
func (rt *Router) dispatchJoin(ctx context.Context, senderID int64, env Envelope) {
	username, ok := env.GetString("username")
	if !ok {
		username, _, _ = rt.hub.Oracle.Username(ctx, senderID)
	}
	rt.hub.announceJoin(senderID, username)
}

func (rt *Router) broadcastExceptSender(senderID int64, env Envelope) {
	frame, err := env.Marshal()
	if err != nil {
		return
	}
	rt.fanoutExceptSender(senderID, frame)
}

func (rt *Router) fanoutExceptSender(senderID int64, frame []byte) {
	failed := rt.hub.Conns.BroadcastExcept(frame, senderID, true)
	rt.disconnectFailed(failed)
}

func (rt *Router) deliverUnicast(userID int64, frame []byte) {
	if rt.hub.Conns.Send(userID, frame) == Failed {
		if session, ok := rt.hub.Conns.Remove(userID); ok {
			rt.hub.cascade(userID, nil)
			_ = session
		}
	}
}

func (rt *Router) deliverUnicastAll(userIDs []int64, frame []byte) {
	failed := rt.hub.Conns.UnicastAll(frame, userIDs)
	rt.disconnectFailed(failed)
}

func (rt *Router) disconnectFailed(failed map[int64]Session) {
	for uid := range failed {
		if session, ok := rt.hub.Conns.Remove(uid); ok {
			rt.hub.cascade(uid, nil)
			_ = session
		}
	}
}

func excludeID(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
