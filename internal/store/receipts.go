package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// LatestIndex selects the most recent update in GetUpdate.
const LatestIndex int64 = 0xFFFFFFFF

// Receipt is a stored receipt row.
type Receipt struct {
	WorkOrderID             string
	WorkerServiceID         string
	WorkerID                string
	RequesterID             string
	CreateStatus            int
	WorkOrderRequestHash    string
	RequesterGeneratedNonce string
	RequesterSignature      string
	SignatureRules          string
	ReceiptVerificationKey  string
}

// Update is a stored receipt update row. Data holds JSON text.
type Update struct {
	WorkOrderID     string
	UpdaterID       string
	Index           int64
	Type            int
	Data            string
	UpdateSignature string
	SignatureRules  string
}

// ReceiptFilter selects receipts. Empty strings and a nil status match all.
type ReceiptFilter struct {
	WorkerServiceID string
	WorkerID        string
	RequesterID     string
	Status          *int
}

func (f ReceiptFilter) conds() []Cond {
	var conds []Cond
	if f.WorkerServiceID != "" {
		conds = append(conds, Cond{"worker_service_id", f.WorkerServiceID})
	}
	if f.WorkerID != "" {
		conds = append(conds, Cond{"worker_id", f.WorkerID})
	}
	if f.RequesterID != "" {
		conds = append(conds, Cond{"requester_id", f.RequesterID})
	}
	if f.Status != nil {
		conds = append(conds, Cond{"receipt_create_status", *f.Status})
	}
	return conds
}

// PutReceipt inserts a receipt. Returns ErrExists if the work order already
// has one.
func (s *Store) PutReceipt(ctx context.Context, r Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put receipt: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "receipts")
	if err != nil {
		return fmt.Errorf("put receipt: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
		(work_order_id, worker_service_id, worker_id, requester_id, receipt_create_status,
		 work_order_request_hash, requester_generated_nonce, requester_signature,
		 signature_rules, receipt_verification_key, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.WorkOrderID,
		r.WorkerServiceID,
		r.WorkerID,
		r.RequesterID,
		r.CreateStatus,
		r.WorkOrderRequestHash,
		r.RequesterGeneratedNonce,
		r.RequesterSignature,
		r.SignatureRules,
		r.ReceiptVerificationKey,
		seq,
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("put receipt %s: %w", r.WorkOrderID, ErrExists)
		}
		return fmt.Errorf("put receipt: %w", err)
	}

	return tx.Commit()
}

// GetReceipt returns the receipt of a work order.
func (s *Store) GetReceipt(ctx context.Context, workOrderID string) (Receipt, error) {
	var r Receipt
	err := s.db.QueryRowContext(ctx, `
		SELECT work_order_id, worker_service_id, worker_id, requester_id, receipt_create_status,
		       work_order_request_hash, requester_generated_nonce, requester_signature,
		       signature_rules, receipt_verification_key
		FROM receipts
		WHERE work_order_id = ?
	`, workOrderID).Scan(
		&r.WorkOrderID,
		&r.WorkerServiceID,
		&r.WorkerID,
		&r.RequesterID,
		&r.CreateStatus,
		&r.WorkOrderRequestHash,
		&r.RequesterGeneratedNonce,
		&r.RequesterSignature,
		&r.SignatureRules,
		&r.ReceiptVerificationKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, fmt.Errorf("receipt %s: %w", workOrderID, ErrNotFound)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return r, nil
}

// AppendUpdate stores u under the next index for its (work order, updater)
// pair, starting at 0, and returns the assigned index. u.Index is ignored.
// Returns ErrNotFound if the receipt does not exist.
func (s *Store) AppendUpdate(ctx context.Context, u Update) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append update: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM receipts WHERE work_order_id = ?", u.WorkOrderID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("append update: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("receipt %s: %w", u.WorkOrderID, ErrNotFound)
	}

	var index int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(update_index) + 1, 0)
		FROM receipt_updates
		WHERE work_order_id = ? AND updater_id = ?
	`, u.WorkOrderID, u.UpdaterID).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("append update: next index: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipt_updates
		(work_order_id, updater_id, update_index, update_type, update_data, update_signature, signature_rules)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		u.WorkOrderID,
		u.UpdaterID,
		index,
		u.Type,
		u.Data,
		u.UpdateSignature,
		u.SignatureRules,
	)
	if err != nil {
		return 0, fmt.Errorf("append update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append update: commit: %w", err)
	}
	return index, nil
}

// GetUpdate returns the update at index, or the latest one for LatestIndex.
func (s *Store) GetUpdate(ctx context.Context, workOrderID, updaterID string, index int64) (Update, error) {
	query := `
		SELECT work_order_id, updater_id, update_index, update_type, update_data, update_signature, signature_rules
		FROM receipt_updates
		WHERE work_order_id = ? AND updater_id = ? AND update_index = ?
	`
	args := []any{workOrderID, updaterID, index}
	if index == LatestIndex {
		query = `
			SELECT work_order_id, updater_id, update_index, update_type, update_data, update_signature, signature_rules
			FROM receipt_updates
			WHERE work_order_id = ? AND updater_id = ?
			ORDER BY update_index DESC
			LIMIT 1
		`
		args = args[:2]
	}

	var u Update
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.WorkOrderID,
		&u.UpdaterID,
		&u.Index,
		&u.Type,
		&u.Data,
		&u.UpdateSignature,
		&u.SignatureRules,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Update{}, fmt.Errorf("update %s/%s/%d: %w", workOrderID, updaterID, index, ErrNotFound)
	}
	if err != nil {
		return Update{}, fmt.Errorf("get update: %w", err)
	}
	return u, nil
}

// LookupReceipts returns the work order ids of every receipt matching f in
// stable order.
func (s *Store) LookupReceipts(ctx context.Context, f ReceiptFilter) ([]string, error) {
	query, params, err := selectIDs("receipts", "work_order_id", f.conds())
	if err != nil {
		return nil, fmt.Errorf("lookup receipts: %w", err)
	}
	return s.queryIDs(ctx, query, params)
}

func (s *Store) queryIDs(ctx context.Context, query string, params []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
