package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope is a signaling message exchanged over a session. The wire
// format is an arbitrary JSON object with a required "type" discriminator;
// everything else is opaque to the router except the handful of fields it
// reads to decide routing. Keeping the underlying representation as
// map[string]any (rather than a fixed struct) means fields the router
// doesn't understand survive a relay untouched.
type Envelope map[string]any

// ParseEnvelope decodes a raw text frame into an Envelope. Numbers are
// decoded as json.Number rather than float64 so GetFlexID can recover
// user/group ids beyond float64's 2^53 exact-integer range.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	if _, ok := e["type"]; !ok {
		return nil, fmt.Errorf("envelope missing required field %q", "type")
	}
	return e, nil
}

// Type returns the envelope's discriminator. Callers only reach this after
// ParseEnvelope has already confirmed the field exists.
func (e Envelope) Type() string {
	t, _ := e["type"].(string)
	return t
}

// Set stamps a field, overwriting any existing value.
func (e Envelope) Set(key string, value any) {
	e[key] = value
}

// GetString returns a string field.
func (e Envelope) GetString(key string) (string, bool) {
	v, ok := e[key].(string)
	return v, ok
}

// GetBool returns a bool field.
func (e Envelope) GetBool(key string) (bool, bool) {
	v, ok := e[key].(bool)
	return v, ok
}

// GetFlexID reads a field that the original implementation accepted as
// either a JSON number or a numeric string (Python's bare int(x) coercion).
// Returns ok=false if the field is absent, and an error if present but not
// parseable as an integer.
func (e Envelope) GetFlexID(key string) (id int64, ok bool, err error) {
	v, present := e[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("field %q is not an integer: %w", key, err)
		}
		return i, true, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("field %q is not an integer: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("field %q has unsupported type %T", key, v)
	}
}

// Target resolves the direct-call/chat recipient from either "to" or
// "targetUserId", preferring "to" when both are present.
func (e Envelope) Target() (int64, bool, error) {
	if id, ok, err := e.GetFlexID("to"); ok || err != nil {
		return id, ok, err
	}
	return e.GetFlexID("targetUserId")
}

// GroupID resolves the "groupId" field.
func (e Envelope) GroupID() (int64, bool, error) {
	return e.GetFlexID("groupId")
}

// Marshal serializes the envelope back to a JSON text frame.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewError builds the standard error envelope: {"type":"error","detail":...}.
func NewError(detail string) Envelope {
	return Envelope{"type": "error", "detail": detail}
}
