package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Worker is a stored registry entry. Details holds JSON text.
type Worker struct {
	ID                 string
	Type               int
	OrganizationID     string
	ApplicationTypeIDs []string
	Details            string
	Status             int
}

// WorkerFilter selects workers by type, and optionally organization and
// application types. A worker matches the application types when it lists
// every one of them.
type WorkerFilter struct {
	Type               int
	OrganizationID     string
	ApplicationTypeIDs []string
}

// PutWorker inserts a worker. Returns ErrExists if the id is taken.
func (s *Store) PutWorker(ctx context.Context, w Worker) error {
	apps, err := json.Marshal(nonNil(w.ApplicationTypeIDs))
	if err != nil {
		return fmt.Errorf("put worker: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put worker: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "workers")
	if err != nil {
		return fmt.Errorf("put worker: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workers (id, worker_type, organization_id, application_type_ids, details, status, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.Type, w.OrganizationID, string(apps), w.Details, w.Status, seq)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("put worker %s: %w", w.ID, ErrExists)
		}
		return fmt.Errorf("put worker: %w", err)
	}
	return tx.Commit()
}

// UpdateWorkerDetails replaces a worker's details.
func (s *Store) UpdateWorkerDetails(ctx context.Context, id, details string) error {
	return s.updateWorker(ctx, id, "UPDATE workers SET details = ? WHERE id = ?", details)
}

// SetWorkerStatus changes a worker's status.
func (s *Store) SetWorkerStatus(ctx context.Context, id string, status int) error {
	return s.updateWorker(ctx, id, "UPDATE workers SET status = ? WHERE id = ?", status)
}

func (s *Store) updateWorker(ctx context.Context, id, stmt string, value any) error {
	res, err := s.db.ExecContext(ctx, stmt, value, id)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetWorker returns a worker.
func (s *Store) GetWorker(ctx context.Context, id string) (Worker, error) {
	var w Worker
	var apps string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, worker_type, organization_id, application_type_ids, details, status
		FROM workers
		WHERE id = ?
	`, id).Scan(&w.ID, &w.Type, &w.OrganizationID, &apps, &w.Details, &w.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Worker{}, fmt.Errorf("get worker: %w", err)
	}
	if err := json.Unmarshal([]byte(apps), &w.ApplicationTypeIDs); err != nil {
		return Worker{}, fmt.Errorf("get worker: application types: %w", err)
	}
	return w, nil
}

// LookupWorkers returns the ids of every worker matching f in stable order.
func (s *Store) LookupWorkers(ctx context.Context, f WorkerFilter) ([]string, error) {
	conds := []Cond{{"worker_type", f.Type}}
	if f.OrganizationID != "" {
		conds = append(conds, Cond{"organization_id", f.OrganizationID})
	}
	query, params, err := selectIDs("workers", "id", conds)
	if err != nil {
		return nil, fmt.Errorf("lookup workers: %w", err)
	}
	ids, err := s.queryIDs(ctx, query, params)
	if err != nil || len(f.ApplicationTypeIDs) == 0 {
		return ids, err
	}

	// Application types are a JSON list column; match them here.
	matched := []string{}
	for _, id := range ids {
		w, err := s.GetWorker(ctx, id)
		if err != nil {
			return nil, err
		}
		if containsAll(w.ApplicationTypeIDs, f.ApplicationTypeIDs) {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
