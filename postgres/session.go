package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flowagent"
)

// Append inserts entry at the end of the session, creating the session row on first use.
func (s *PGStore) Append(ctx context.Context, sessionID string, entry flowagent.SessionEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("session: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO agent_sessions (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, sessionID,
	); err != nil {
		return fmt.Errorf("session: insert session: %w", err)
	}

	var workflow any
	if len(entry.Workflow) > 0 {
		workflow = []byte(entry.Workflow)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO agent_session_entries (id, session_id, role, content, workflow, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, sessionID, string(entry.Role), entry.Content, workflow, entry.Timestamp,
	); err != nil {
		return fmt.Errorf("session: insert entry %s: %w", entry.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

// Get returns the session's entries in insertion order.
// Returns flowagent.ErrSessionNotFound if the session was never created.
func (s *PGStore) Get(ctx context.Context, sessionID string) ([]flowagent.SessionEntry, error) {
	ok, err := s.exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, flowagent.ErrSessionNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, role, content, workflow, created_at FROM agent_session_entries
		 WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: query entries: %w", err)
	}
	defer rows.Close()

	entries := []flowagent.SessionEntry{}
	for rows.Next() {
		var (
			e        flowagent.SessionEntry
			role     string
			workflow []byte
		)
		if err := rows.Scan(&e.ID, &role, &e.Content, &workflow, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("session: scan entry: %w", err)
		}
		e.Role = flowagent.Role(role)
		e.Workflow = workflow
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: rows entries: %w", err)
	}

	return entries, nil
}

// Clear deletes every entry of the session but keeps the session row.
// Returns flowagent.ErrSessionNotFound if the session was never created.
func (s *PGStore) Clear(ctx context.Context, sessionID string) error {
	ok, err := s.exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return flowagent.ErrSessionNotFound
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM agent_session_entries WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("session: delete entries: %w", err)
	}
	return nil
}

func (s *PGStore) exists(ctx context.Context, sessionID string) (bool, error) {
	var ok bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agent_sessions WHERE id = $1)`, sessionID,
	).Scan(&ok); err != nil {
		return false, fmt.Errorf("session: lookup: %w", err)
	}
	return ok, nil
}
