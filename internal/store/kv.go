// Package store provides the local persistence layer: a flat,
// namespaced key-value store backed by SQLite, and the schedule cache,
// sync log and auth/settings stores built on top of it.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Bucket names. Each conceptual namespace from the mobile app's
// preference stores maps to one bucket.
const (
	BucketScheduleCache = "schedule_cache"
	BucketSyncLogs      = "sync_logs"
	BucketSettings      = "settings"
	BucketAuth          = "auth"
)

// KV is a flat string-keyed blob store. A Put replaces the whole value
// for its (bucket, key) atomically; there are no partial writes.
type KV struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// kv table exists. Use ":memory:" in tests.
func Open(path string) (*KV, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		bucket TEXT NOT NULL,
		key    TEXT NOT NULL,
		value  TEXT NOT NULL,
		PRIMARY KEY (bucket, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &KV{db: db}, nil
}

func (k *KV) Close() error {
	return k.db.Close()
}

// Get returns the stored value and whether it exists.
func (k *KV) Get(bucket, key string) (string, bool, error) {
	var value string
	err := k.db.QueryRow(
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, bucket, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s/%s: %w", bucket, key, err)
	}
	return value, true, nil
}

// Put stores value under (bucket, key), replacing any previous value.
func (k *KV) Put(bucket, key, value string) error {
	_, err := k.db.Exec(
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
		bucket, key, value,
	)
	if err != nil {
		return fmt.Errorf("kv put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Delete removes (bucket, key); deleting a missing key is a no-op.
func (k *KV) Delete(bucket, key string) error {
	_, err := k.db.Exec(`DELETE FROM kv WHERE bucket = ? AND key = ?`, bucket, key)
	if err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", bucket, key, err)
	}
	return nil
}
