package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/graphload/internal/record"
	"github.com/roach88/graphload/internal/upload"
)

// ErrNoState is returned by LoadState when no run was saved.
var ErrNoState = errors.New("no saved upload state")

// Status summarizes a saved run.
type Status struct {
	Server      string `json:"server"`
	Fingerprint string `json:"fingerprint"`
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Created     int    `json:"created"`
	Failed      int    `json:"failed"`
	StashItems  int    `json:"stash_items"`
	Uncertain   string `json:"uncertain,omitempty"`
	Attempts    int    `json:"attempts"`
}

// RecordCreated implements upload.Checkpointer. The record leaves the
// pending list and its handle is stored, in one transaction.
func (s *Store) RecordCreated(ctx context.Context, id, handle string) error {
	return s.inTx(ctx, "record created", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolved (id, handle, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM resolved))
			ON CONFLICT(id) DO UPDATE SET handle = excluded.handle
		`, id, handle)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET attempts = attempts + 1`)
		return err
	})
}

// RecordFailed implements upload.Checkpointer.
func (s *Store) RecordFailed(ctx context.Context, id, reason string) error {
	return s.inTx(ctx, "record failed", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending WHERE id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failed (id, reason, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM failed))
			ON CONFLICT(id) DO UPDATE SET reason = excluded.reason
		`, id, reason)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET attempts = attempts + 1`)
		return err
	})
}

// StashApplied implements upload.Checkpointer. The item leaves the saved
// stash.
func (s *Store) StashApplied(ctx context.Context, token string) error {
	return s.inTx(ctx, "stash applied", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM stash_items WHERE token = ?`, token)
		return err
	})
}

// SaveState implements upload.Checkpointer. It replaces the saved state
// with st. Handles keep the write order they already have; failure reasons
// recorded by RecordFailed are kept.
func (s *Store) SaveState(ctx context.Context, st *upload.State) error {
	return s.inTx(ctx, "save state", func(tx *sql.Tx) error {
		cfg := st.Config
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, server, save_dir, interrupt_after, fingerprint, total, uncertain, attempts)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				server = excluded.server,
				save_dir = excluded.save_dir,
				interrupt_after = excluded.interrupt_after,
				fingerprint = excluded.fingerprint,
				total = excluded.total,
				uncertain = excluded.uncertain,
				attempts = excluded.attempts
		`, cfg.Server, cfg.SaveDir, cfg.InterruptAfter, cfg.Fingerprint, st.Total, st.Uncertain, st.Attempts)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}

		if err := writePending(ctx, tx, st.Pending); err != nil {
			return err
		}
		if err := writeResolved(ctx, tx, st.Resolved); err != nil {
			return err
		}
		if err := writeFailed(ctx, tx, st.Failed); err != nil {
			return err
		}
		return writeStash(ctx, tx, st.Stash.Items)
	})
}

func writePending(ctx context.Context, tx *sql.Tx, pending []record.Record) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending`); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	for i, r := range pending {
		data, err := marshalRecord(r)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending (position, id, record) VALUES (?, ?, ?)`, i, r.ID, data); err != nil {
			return fmt.Errorf("write pending %q: %w", r.ID, err)
		}
	}
	return nil
}

func writeResolved(ctx context.Context, tx *sql.Tx, resolved map[string]string) error {
	existing, err := queryIDs(ctx, tx, `SELECT id FROM resolved`)
	if err != nil {
		return fmt.Errorf("read resolved: %w", err)
	}
	for _, id := range existing {
		if _, ok := resolved[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resolved WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete resolved %q: %w", id, err)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(resolved)) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resolved (id, handle, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM resolved))
			ON CONFLICT(id) DO UPDATE SET handle = excluded.handle
		`, id, resolved[id])
		if err != nil {
			return fmt.Errorf("write resolved %q: %w", id, err)
		}
	}
	return nil
}

func writeFailed(ctx context.Context, tx *sql.Tx, failed []string) error {
	existing, err := queryIDs(ctx, tx, `SELECT id FROM failed`)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	for _, id := range existing {
		if slices.Contains(failed, id) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM failed WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete failed %q: %w", id, err)
		}
	}

	// Rewrite seq so the saved order matches st.Failed.
	for i, id := range failed {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failed (id, seq) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET seq = excluded.seq
		`, id, i+1)
		if err != nil {
			return fmt.Errorf("write failed %q: %w", id, err)
		}
	}
	return nil
}

func writeStash(ctx context.Context, tx *sql.Tx, items []upload.StashItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM stash_items`); err != nil {
		return fmt.Errorf("clear stash: %w", err)
	}
	for i, it := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stash_items (position, record_id, record_type, property, kind, token, target, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, i, it.RecordID, it.RecordType, it.Property, string(it.Kind), it.Token, it.Target, it.Text)
		if err != nil {
			return fmt.Errorf("write stash item %q: %w", it.Token, err)
		}
	}
	return nil
}

// LoadState reads the saved run. Returns ErrNoState if there is none.
func (s *Store) LoadState(ctx context.Context) (*upload.State, error) {
	st := &upload.State{
		Pending:  []record.Record{},
		Resolved: make(map[string]string),
		Failed:   []string{},
		Stash:    upload.Stash{Items: []upload.StashItem{}},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT server, save_dir, interrupt_after, fingerprint, total, uncertain, attempts
		FROM runs WHERE id = 1
	`).Scan(
		&st.Config.Server,
		&st.Config.SaveDir,
		&st.Config.InterruptAfter,
		&st.Config.Fingerprint,
		&st.Total,
		&st.Uncertain,
		&st.Attempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	if err := s.loadPending(ctx, st); err != nil {
		return nil, err
	}
	if err := s.loadResolved(ctx, st); err != nil {
		return nil, err
	}
	failed, err := queryIDs(ctx, s.db, `SELECT id FROM failed ORDER BY seq ASC, id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	st.Failed = append(st.Failed, failed...)
	if err := s.loadStash(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) loadPending(ctx context.Context, st *upload.State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM pending ORDER BY position ASC`)
	if err != nil {
		return fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan pending: %w", err)
		}
		r, err := unmarshalRecord(data)
		if err != nil {
			return err
		}
		st.Pending = append(st.Pending, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pending: %w", err)
	}
	return nil
}

func (s *Store) loadResolved(ctx context.Context, st *upload.State) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, handle FROM resolved`)
	if err != nil {
		return fmt.Errorf("query resolved: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, handle string
		if err := rows.Scan(&id, &handle); err != nil {
			return fmt.Errorf("scan resolved: %w", err)
		}
		st.Resolved[id] = handle
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate resolved: %w", err)
	}
	return nil
}

func (s *Store) loadStash(ctx context.Context, st *upload.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, record_type, property, kind, token, target, text
		FROM stash_items
		ORDER BY position ASC
	`)
	if err != nil {
		return fmt.Errorf("query stash: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it upload.StashItem
		var kind string
		if err := rows.Scan(&it.RecordID, &it.RecordType, &it.Property, &kind, &it.Token, &it.Target, &it.Text); err != nil {
			return fmt.Errorf("scan stash item: %w", err)
		}
		it.Kind = record.Kind(kind)
		st.Stash.Items = append(st.Stash.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stash: %w", err)
	}
	return nil
}

// FailureReasons returns the recorded reason of every failed record.
func (s *Store) FailureReasons(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, reason FROM failed`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, reason string
		if err := rows.Scan(&id, &reason); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out[id] = reason
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed: %w", err)
	}
	return out, nil
}

// Status counts the rows of the saved run.
func (s *Store) Status(ctx context.Context) (*Status, error) {
	var st Status
	err := s.db.QueryRowContext(ctx, `
		SELECT server, fingerprint, total, uncertain, attempts,
			(SELECT COUNT(*) FROM pending),
			(SELECT COUNT(*) FROM resolved),
			(SELECT COUNT(*) FROM failed),
			(SELECT COUNT(*) FROM stash_items)
		FROM runs WHERE id = 1
	`).Scan(&st.Server, &st.Fingerprint, &st.Total, &st.Uncertain, &st.Attempts,
		&st.Pending, &st.Created, &st.Failed, &st.StashItems)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	return &st, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryIDs(ctx context.Context, q querier, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// inTx runs fn in a transaction and commits it when fn succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
