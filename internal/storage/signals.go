package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Signal is a single recorded assistant interaction.
type Signal struct {
	Intent    string
	Score     float64
	Sentiment string
	At        time.Time
}

// RecordSignal appends an assistant signal for the member.
func (s *Store) RecordSignal(ctx context.Context, userID snowflake.ID, intent string, score float64, sentiment string) error {
	now := s.now().Unix()
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			"INSERT INTO signals (user_id, intent, score, sentiment, ts) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{id(userID), intent, score, sentiment, now}})
		if err != nil {
			return fmt.Errorf("failed to record signal: %w", err)
		}
		return nil
	})
}

// RecentSignals returns the member's latest signals, newest first.
func (s *Store) RecentSignals(ctx context.Context, userID snowflake.ID, limit int) ([]Signal, error) {
	var signals []Signal

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT intent, score, sentiment, ts FROM signals
			WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?
		`, &sqlitex.ExecOptions{
			Args: []any{id(userID), limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				signals = append(signals, Signal{
					Intent:    stmt.ColumnText(0),
					Score:     stmt.ColumnFloat(1),
					Sentiment: stmt.ColumnText(2),
					At:        time.Unix(stmt.ColumnInt64(3), 0).UTC(),
				})
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	return signals, nil
}
