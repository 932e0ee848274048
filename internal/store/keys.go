package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Key is a worker's current encryption key.
type Key struct {
	WorkerID           string
	EncryptionKey      string
	EncryptionKeyNonce string
	Tag                string
	SignatureNonce     string
	Signature          string
}

// PutKey installs or replaces a worker's key.
func (s *Store) PutKey(ctx context.Context, k Key) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO encryption_keys
		(worker_id, encryption_key, encryption_key_nonce, tag, signature_nonce, signature)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			encryption_key = excluded.encryption_key,
			encryption_key_nonce = excluded.encryption_key_nonce,
			tag = excluded.tag,
			signature_nonce = excluded.signature_nonce,
			signature = excluded.signature
	`, k.WorkerID, k.EncryptionKey, k.EncryptionKeyNonce, k.Tag, k.SignatureNonce, k.Signature)
	if err != nil {
		return fmt.Errorf("put key: %w", err)
	}
	return nil
}

// GetKey returns a worker's key.
func (s *Store) GetKey(ctx context.Context, workerID string) (Key, error) {
	var k Key
	err := s.db.QueryRowContext(ctx, `
		SELECT worker_id, encryption_key, encryption_key_nonce, tag, signature_nonce, signature
		FROM encryption_keys
		WHERE worker_id = ?
	`, workerID).Scan(&k.WorkerID, &k.EncryptionKey, &k.EncryptionKeyNonce, &k.Tag, &k.SignatureNonce, &k.Signature)
	if errors.Is(err, sql.ErrNoRows) {
		return Key{}, fmt.Errorf("key for worker %s: %w", workerID, ErrNotFound)
	}
	if err != nil {
		return Key{}, fmt.Errorf("get key: %w", err)
	}
	return k, nil
}
