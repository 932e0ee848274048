// Package store keeps the emulator's listener state in SQLite.
//
// Tables:
//   - work_orders: submitted bodies, poll counters and terminal results
//   - receipts / receipt_updates: receipts and their ordered updates
//   - workers: worker registry entries
//   - encryption_keys: the current key of each worker
//   - lookup_cursors: server-side lookup continuation state
//
// List queries order by seq, a per-table insertion counter, then by the
// primary key under BINARY collation, so lookup pages are stable.
//
// Schema upgrades are tracked in PRAGMA user_version; Open applies the
// missing steps one transaction at a time.
package store
