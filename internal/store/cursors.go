package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Cursor is the server-side state behind a lookup tag.
// Filter holds the canonical JSON of the originating filter.
type Cursor struct {
	Tag      string
	Kind     string
	Filter   string
	Position int
}

// PutCursor stores a cursor. Writing an existing tag is a no-op, since equal
// tags are derived from equal state.
func (s *Store) PutCursor(ctx context.Context, c Cursor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookup_cursors (tag, kind, filter, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tag) DO NOTHING
	`, c.Tag, c.Kind, c.Filter, c.Position)
	if err != nil {
		return fmt.Errorf("put cursor: %w", err)
	}
	return nil
}

// GetCursor returns the cursor for tag.
func (s *Store) GetCursor(ctx context.Context, tag string) (Cursor, error) {
	var c Cursor
	err := s.db.QueryRowContext(ctx, `
		SELECT tag, kind, filter, position FROM lookup_cursors WHERE tag = ?
	`, tag).Scan(&c.Tag, &c.Kind, &c.Filter, &c.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursor{}, fmt.Errorf("cursor %s: %w", tag, ErrNotFound)
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("get cursor: %w", err)
	}
	return c, nil
}
