package hub

import "context"

// notifyPresence implements the Presence Notifier (§4.G): on connect of
// user u, find every group u belongs to that currently has an active
// call, and unicast u a single "ongoing-group-calls" envelope listing
// them — sent before the session enters its receive loop, so it's always
// the first frame a reconnecting participant sees.
func (h *Hub) notifyPresence(ctx context.Context, userID int64) {
	groups, err := h.Oracle.GroupsOf(ctx, userID)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", userID).Msg("membership lookup failed for presence notification")
		return
	}

	var calls []map[string]any
	for _, g := range groups {
		roster := h.Calls.Participants(g)
		if len(roster) == 0 {
			continue
		}
		modality, _ := h.Calls.ModalityOf(g)
		name, _, err := h.Oracle.GroupName(ctx, g)
		if err != nil {
			h.log.Warn().Err(err).Int64("group_id", g).Msg("group name lookup failed for presence notification")
			name = ""
		}
		calls = append(calls, map[string]any{
			"groupId":          g,
			"groupName":        name,
			"participants":     roster,
			"participantCount": len(roster),
			"isVideo":          modality == Video,
		})
	}

	if len(calls) == 0 {
		return
	}

	frame, err := Envelope{"type": "ongoing-group-calls", "calls": calls}.Marshal()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal ongoing-group-calls envelope")
		return
	}
	if h.Conns.Send(userID, frame) == Failed {
		if session, ok := h.Conns.Remove(userID); ok {
			_ = session
			h.cascade(userID, nil)
		}
	}
}

// announceJoin broadcasts a user_joined announcement to everyone else, used by
// the router's "join" handler. username is the one to announce — it may
// differ from the oracle's registered username when the envelope carries
// its own override (the supplemented display-name-change behavior).
func (h *Hub) announceJoin(userID int64, username string) {
	frame, err := Envelope{"type": "user_joined", "user_id": userID, "username": username}.Marshal()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal user_joined envelope")
		return
	}
	failed := h.Conns.BroadcastExcept(frame, userID, true)
	for uid := range failed {
		if session, ok := h.Conns.Remove(uid); ok {
			_ = session
			h.cascade(uid, nil)
		}
	}
}
