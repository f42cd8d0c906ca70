package pgstore

import (
	"context"

	"github.com/snarg/signalhub/internal/store"
)

// Contacts implements store.ContactStore against the contacts table.
type Contacts struct {
	db *DB
}

func NewContacts(db *DB) *Contacts {
	return &Contacts{db: db}
}

func (c *Contacts) ListContacts(ctx context.Context, ownerID int64) ([]store.Contact, error) {
	rows, err := c.db.Pool.Query(ctx,
		`SELECT c.id, c.owner_id, c.contact_id, u.username, c.created_at
		 FROM contacts c JOIN users u ON u.id = c.contact_id
		 WHERE c.owner_id = $1 ORDER BY u.username`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Contact
	for rows.Next() {
		var ct store.Contact
		if err := rows.Scan(&ct.ID, &ct.OwnerID, &ct.ContactID, &ct.Username, &ct.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (c *Contacts) AddContact(ctx context.Context, ownerID, contactID int64) (store.Contact, error) {
	var ct store.Contact
	err := c.db.Pool.QueryRow(ctx,
		`INSERT INTO contacts (owner_id, contact_id) VALUES ($1, $2)
		 ON CONFLICT (owner_id, contact_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		 RETURNING id, owner_id, contact_id, created_at`,
		ownerID, contactID,
	).Scan(&ct.ID, &ct.OwnerID, &ct.ContactID, &ct.CreatedAt)
	if err != nil {
		return store.Contact{}, err
	}
	ct.ContactID = contactID
	_ = c.db.Pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, contactID).Scan(&ct.Username)
	return ct, nil
}

func (c *Contacts) RemoveContact(ctx context.Context, ownerID, contactID int64) error {
	_, err := c.db.Pool.Exec(ctx,
		`DELETE FROM contacts WHERE owner_id = $1 AND contact_id = $2`, ownerID, contactID)
	return err
}
