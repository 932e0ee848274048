package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReceipt creates a receipt with minimal required fields.
func createTestReceipt(workOrderID, workerID string, status int) Receipt {
	return Receipt{
		WorkOrderID:     workOrderID,
		WorkerServiceID: "svc-1",
		WorkerID:        workerID,
		RequesterID:     "req-1",
		CreateStatus:    status,
		SignatureRules:  "SHA-256/RSA-OAEP-4096",
	}
}

func mustPutReceipt(t *testing.T, s *Store, r Receipt) {
	t.Helper()
	if err := s.PutReceipt(context.Background(), r); err != nil {
		t.Fatalf("PutReceipt(%s) failed: %v", r.WorkOrderID, err)
	}
}
