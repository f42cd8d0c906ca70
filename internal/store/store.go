// Package store declares the external collaborator interfaces consumed by
// the thin CRUD surface in internal/api: a persistence sink for direct and
// group chat messages, and a contact list. The signaling core
// (internal/hub) uses neither. Concrete implementations live in pgstore (Postgres) and
// memstore (in-memory, for tests).
package store

import (
	"context"
	"time"
)

// ChatMessage is one persisted direct or group chat message. GroupID is
// zero for a direct message; TargetID is zero for a group message.
type ChatMessage struct {
	ID       int64
	SenderID int64
	TargetID int64
	GroupID  int64
	Content  string
	SentAt   time.Time
}

// PersistenceSink appends chat and group-chat messages and reads them back.
// The router only relays; callers from internal/api are responsible for
// calling this before or after a message is forwarded over the hub.
type PersistenceSink interface {
	AppendDirect(ctx context.Context, senderID, targetID int64, content string) (ChatMessage, error)
	AppendGroup(ctx context.Context, senderID, groupID int64, content string) (ChatMessage, error)
	DirectHistory(ctx context.Context, userA, userB int64, limit int) ([]ChatMessage, error)
	GroupHistory(ctx context.Context, groupID int64, limit int) ([]ChatMessage, error)
}

// Contact is one entry in a user's contact list.
type Contact struct {
	ID        int64
	OwnerID   int64
	ContactID int64
	Username  string
	CreatedAt time.Time
}

// ContactStore manages the CRUD surface described in SPEC_FULL.md's
// supplemented contacts feature.
type ContactStore interface {
	ListContacts(ctx context.Context, ownerID int64) ([]Contact, error)
	AddContact(ctx context.Context, ownerID, contactID int64) (Contact, error)
	RemoveContact(ctx context.Context, ownerID, contactID int64) error
}
