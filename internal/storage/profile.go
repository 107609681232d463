package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Role is the standing of a member.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// MaxTrust is the highest trust level.
const MaxTrust = 3

// Profile is the stored record of a member.
type Profile struct {
	UserID     snowflake.ID
	Role       Role
	Trust      int
	Locale     string
	Style      string
	AllowAdmin bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p Profile) validate() error {
	switch p.Role {
	case RoleOwner, RoleStaff, RoleUser:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, p.Role)
	}
	if p.Trust < 0 || p.Trust > MaxTrust {
		return fmt.Errorf("%w: trust %d outside 0..%d", ErrInvalidProfile, p.Trust, MaxTrust)
	}
	return nil
}

// UpsertProfile creates or replaces the member's profile, keeping its creation time.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) error {
	if p.Role == "" {
		p.Role = RoleUser
	}
	if err := p.validate(); err != nil {
		return err
	}

	now := s.now().Unix()
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO profiles (user_id, role, trust, locale, style, allow_admin, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				role = excluded.role,
				trust = excluded.trust,
				locale = excluded.locale,
				style = excluded.style,
				allow_admin = excluded.allow_admin,
				updated_at = excluded.updated_at
		`, &sqlitex.ExecOptions{
			Args: []any{id(p.UserID), string(p.Role), p.Trust, p.Locale, p.Style, p.AllowAdmin, now, now},
		})
		if err != nil {
			return fmt.Errorf("failed to upsert profile: %w", err)
		}
		return nil
	})
}

// SetPreferences stores the member's reply locale and style, creating the profile if needed.
func (s *Store) SetPreferences(ctx context.Context, userID snowflake.ID, locale, style string) error {
	now := s.now().Unix()
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO profiles (user_id, locale, style, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				locale = excluded.locale,
				style = excluded.style,
				updated_at = excluded.updated_at
		`, &sqlitex.ExecOptions{
			Args: []any{id(userID), locale, style, now, now},
		})
		if err != nil {
			return fmt.Errorf("failed to set preferences: %w", err)
		}
		return nil
	})
}

// GetProfile returns the member's profile.
func (s *Store) GetProfile(ctx context.Context, userID snowflake.ID) (Profile, bool, error) {
	var (
		profile Profile
		found   bool
	)

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT role, trust, locale, style, allow_admin, created_at, updated_at
			FROM profiles WHERE user_id = ?
		`, &sqlitex.ExecOptions{
			Args: []any{id(userID)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				profile = Profile{
					UserID:     userID,
					Role:       Role(stmt.ColumnText(0)),
					Trust:      stmt.ColumnInt(1),
					Locale:     stmt.ColumnText(2),
					Style:      stmt.ColumnText(3),
					AllowAdmin: stmt.ColumnBool(4),
					CreatedAt:  time.Unix(stmt.ColumnInt64(5), 0).UTC(),
					UpdatedAt:  time.Unix(stmt.ColumnInt64(6), 0).UTC(),
				}
				return nil
			},
		})
	})
	if err != nil {
		return Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, found, nil
}

// Preferences returns the member's stored locale and style.
func (s *Store) Preferences(ctx context.Context, userID snowflake.ID) (string, string, bool) {
	profile, found, err := s.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load preferences", zap.Uint64("user_id", uint64(userID)), zap.Error(err))
		return "", "", false
	}
	if !found || (profile.Locale == "" && profile.Style == "") {
		return "", "", false
	}
	return profile.Locale, profile.Style, true
}
