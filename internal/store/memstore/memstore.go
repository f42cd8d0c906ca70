// Package memstore provides in-memory implementations of the store
// interfaces for tests of internal/api, where spinning up Postgres would
// be disproportionate to what's being exercised.
package memstore

import (
	"context"
	"sync"

	"github.com/snarg/signalhub/internal/store"
)

type Sink struct {
	mu     sync.Mutex
	nextID int64
	direct []store.ChatMessage
	group  []store.ChatMessage
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) AppendDirect(_ context.Context, senderID, targetID int64, content string) (store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg := store.ChatMessage{ID: s.nextID, SenderID: senderID, TargetID: targetID, Content: content}
	s.direct = append(s.direct, msg)
	return msg, nil
}

func (s *Sink) AppendGroup(_ context.Context, senderID, groupID int64, content string) (store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg := store.ChatMessage{ID: s.nextID, SenderID: senderID, GroupID: groupID, Content: content}
	s.group = append(s.group, msg)
	return msg, nil
}

func (s *Sink) DirectHistory(_ context.Context, userA, userB int64, limit int) ([]store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ChatMessage
	for i := len(s.direct) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.direct[i]
		if (m.SenderID == userA && m.TargetID == userB) || (m.SenderID == userB && m.TargetID == userA) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Sink) GroupHistory(_ context.Context, groupID int64, limit int) ([]store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ChatMessage
	for i := len(s.group) - 1; i >= 0 && len(out) < limit; i-- {
		if s.group[i].GroupID == groupID {
			out = append(out, s.group[i])
		}
	}
	return out, nil
}

type Contacts struct {
	mu        sync.Mutex
	nextID    int64
	usernames map[int64]string
	byOwner   map[int64][]store.Contact
}

func NewContacts(usernames map[int64]string) *Contacts {
	return &Contacts{usernames: usernames, byOwner: make(map[int64][]store.Contact)}
}

func (c *Contacts) ListContacts(_ context.Context, ownerID int64) ([]store.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]store.Contact(nil), c.byOwner[ownerID]...), nil
}

func (c *Contacts) AddContact(_ context.Context, ownerID, contactID int64) (store.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ct := range c.byOwner[ownerID] {
		if ct.ContactID == contactID {
			return ct, nil
		}
	}
	c.nextID++
	ct := store.Contact{ID: c.nextID, OwnerID: ownerID, ContactID: contactID, Username: c.usernames[contactID]}
	c.byOwner[ownerID] = append(c.byOwner[ownerID], ct)
	return ct, nil
}

func (c *Contacts) RemoveContact(_ context.Context, ownerID, contactID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.byOwner[ownerID]
	for i, ct := range list {
		if ct.ContactID == contactID {
			c.byOwner[ownerID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}
