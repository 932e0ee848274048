package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PendingStatus is the status of a work order without a result.
const PendingStatus = 5

// WorkOrder is a stored work order row. Body and Result hold JSON text.
type WorkOrder struct {
	ID          string
	WorkerID    string
	RequesterID string
	Body        string
	Status      int
	Polls       int
	Result      string
}

// PutWorkOrder inserts a pending work order.
// Returns ErrExists if the id is taken.
func (s *Store) PutWorkOrder(ctx context.Context, wo WorkOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put work order: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "work_orders")
	if err != nil {
		return fmt.Errorf("put work order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_orders (id, worker_id, requester_id, body, status, polls, seq)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, wo.ID, wo.WorkerID, wo.RequesterID, wo.Body, PendingStatus, seq)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("put work order %s: %w", wo.ID, ErrExists)
		}
		return fmt.Errorf("put work order: %w", err)
	}
	return tx.Commit()
}

// GetWorkOrder returns a work order.
func (s *Store) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	return getWorkOrder(ctx, s.db, id)
}

// RecordPoll increments the poll counter of a work order and returns the
// updated row.
func (s *Store) RecordPoll(ctx context.Context, id string) (WorkOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("record poll: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE work_orders SET polls = polls + 1 WHERE id = ?", id)
	if err != nil {
		return WorkOrder{}, fmt.Errorf("record poll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return WorkOrder{}, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}

	wo, err := getWorkOrder(ctx, tx, id)
	if err != nil {
		return WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return WorkOrder{}, fmt.Errorf("record poll: commit: %w", err)
	}
	return wo, nil
}

// CompleteWorkOrder stores a terminal status and result for a work order.
func (s *Store) CompleteWorkOrder(ctx context.Context, id string, status int, result string) error {
	if status == PendingStatus {
		return fmt.Errorf("complete work order %s: status must be terminal", id)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE work_orders SET status = ?, result = ? WHERE id = ?", status, result, id)
	if err != nil {
		return fmt.Errorf("complete work order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getWorkOrder(ctx context.Context, q rowQuerier, id string) (WorkOrder, error) {
	var wo WorkOrder
	var result sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, worker_id, requester_id, body, status, polls, result
		FROM work_orders
		WHERE id = ?
	`, id).Scan(&wo.ID, &wo.WorkerID, &wo.RequesterID, &wo.Body, &wo.Status, &wo.Polls, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkOrder{}, fmt.Errorf("work order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return WorkOrder{}, fmt.Errorf("get work order: %w", err)
	}
	wo.Result = result.String
	return wo, nil
}
