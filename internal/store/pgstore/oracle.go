package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Oracle implements hub.MembershipOracle against the group_members/groups/
// users tables.
type Oracle struct {
	db *DB
}

func NewOracle(db *DB) *Oracle {
	return &Oracle{db: db}
}

func (o *Oracle) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var exists bool
	err := o.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE user_id = $1 AND group_id = $2)`,
		userID, groupID,
	).Scan(&exists)
	return exists, err
}

func (o *Oracle) Members(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := o.db.Pool.Query(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (o *Oracle) GroupsOf(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := o.db.Pool.Query(ctx,
		`SELECT group_id FROM group_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (o *Oracle) Username(ctx context.Context, userID int64) (string, bool, error) {
	var name string
	err := o.db.Pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (o *Oracle) GroupName(ctx context.Context, groupID int64) (string, bool, error) {
	var name string
	err := o.db.Pool.QueryRow(ctx, `SELECT name FROM groups WHERE id = $1`, groupID).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// Role reports a group member's role ("member" by default). Not yet
// consulted by any call-routing decision; see SPEC_FULL.md's group roles
// supplement.
func (o *Oracle) Role(ctx context.Context, userID, groupID int64) (string, bool, error) {
	var role string
	err := o.db.Pool.QueryRow(ctx,
		`SELECT role FROM group_members WHERE user_id = $1 AND group_id = $2`,
		userID, groupID,
	).Scan(&role)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}
