package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Brief is the stored outcome of a ticket intake.
type Brief struct {
	ChannelID snowflake.ID
	Type      string
	Goal      string
	Deadline  string
	RefsCount int
	Status    string
	UpdatedAt time.Time
}

// RecordBrief creates or updates the brief of a ticket channel.
func (s *Store) RecordBrief(
	ctx context.Context, channelID snowflake.ID, kind, goal, deadline string, refs int, status string,
) error {
	now := s.now().Unix()
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO briefs (ticket_channel_id, type, goal, deadline, refs_count, status, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (ticket_channel_id) DO UPDATE SET
				type = excluded.type,
				goal = excluded.goal,
				deadline = excluded.deadline,
				refs_count = excluded.refs_count,
				status = excluded.status,
				updated_at = excluded.updated_at
		`, &sqlitex.ExecOptions{
			Args: []any{id(channelID), kind, goal, deadline, refs, status, now},
		})
		if err != nil {
			return fmt.Errorf("failed to record brief: %w", err)
		}
		return nil
	})
}

// GetBrief returns the brief of a ticket channel.
func (s *Store) GetBrief(ctx context.Context, channelID snowflake.ID) (Brief, bool, error) {
	var (
		brief Brief
		found bool
	)

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT type, goal, deadline, refs_count, status, updated_at
			FROM briefs WHERE ticket_channel_id = ?
		`, &sqlitex.ExecOptions{
			Args: []any{id(channelID)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				brief = Brief{
					ChannelID: channelID,
					Type:      stmt.ColumnText(0),
					Goal:      stmt.ColumnText(1),
					Deadline:  stmt.ColumnText(2),
					RefsCount: stmt.ColumnInt(3),
					Status:    stmt.ColumnText(4),
					UpdatedAt: time.Unix(stmt.ColumnInt64(5), 0).UTC(),
				}
				return nil
			},
		})
	})
	if err != nil {
		return Brief{}, false, fmt.Errorf("failed to get brief: %w", err)
	}

	return brief, found, nil
}
