package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vattention/facio-superpowers/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing
var ErrNotFound = errors.New("not found")

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// APIKey is an issued team key. The secret itself is never stored.
type APIKey struct {
	ID        string
	Name      string
	Hash      string
	CreatedAt time.Time
}

// Client represents a machine syncing under an API key
type Client struct {
	ID         string
	KeyID      string
	Name       string
	LastSyncAt *time.Time
	CreatedAt  time.Time
}

// Open opens a SQLite database connection
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		// avoid "database is locked" under concurrent syncs
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// Migrate creates the database schema. Timestamps are unix nanoseconds in UTC
// so that range queries compare numerically.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		key_id TEXT NOT NULL,
		name TEXT NOT NULL,
		last_sync_at INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (key_id) REFERENCES api_keys(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS usage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		model TEXT NOT NULL,
		operation TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost REAL NOT NULL DEFAULT 0,
		module TEXT,
		files_changed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE,
		UNIQUE(client_id, timestamp, model, operation, input_tokens, output_tokens)
	);

	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_clients_key ON clients(key_id);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateAPIKey stores a new key record
func (db *DB) CreateAPIKey(key *APIKey) error {
	_, err := db.Exec(
		`INSERT INTO api_keys (id, name, key_hash) VALUES (?, ?, ?)`,
		key.ID, key.Name, key.Hash,
	)
	return err
}

// GetAPIKey looks a key up by its public id
func (db *DB) GetAPIKey(id string) (*APIKey, error) {
	key := &APIKey{}
	err := db.QueryRow(
		`SELECT id, name, key_hash, created_at FROM api_keys WHERE id = ?`, id,
	).Scan(&key.ID, &key.Name, &key.Hash, &key.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// GetOrCreateClient returns the client, registering it under keyID on first sight.
// A client id already owned by another key yields ErrNotFound.
func (db *DB) GetOrCreateClient(keyID, clientID, clientName string) (*Client, error) {
	client, err := db.getClient(clientID)
	if err == nil {
		if client.KeyID != keyID {
			return nil, ErrNotFound
		}
		if clientName != "" && clientName != client.Name {
			if _, err := db.Exec(`UPDATE clients SET name = ? WHERE id = ?`, clientName, clientID); err != nil {
				return nil, err
			}
			client.Name = clientName
		}
		return client, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err := db.Exec(
		`INSERT INTO clients (id, key_id, name) VALUES (?, ?, ?)`,
		clientID, keyID, clientName,
	); err != nil {
		return nil, err
	}
	return db.getClient(clientID)
}

func (db *DB) getClient(clientID string) (*Client, error) {
	client := &Client{}
	var lastSync sql.NullInt64
	err := db.QueryRow(
		`SELECT id, key_id, name, last_sync_at, created_at FROM clients WHERE id = ?`, clientID,
	).Scan(&client.ID, &client.KeyID, &client.Name, &lastSync, &client.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	client.LastSyncAt = fromNullNanos(lastSync)
	return client, nil
}

// UpdateClientLastSync moves the client's high-water mark forward; it never goes back
func (db *DB) UpdateClientLastSync(clientID string, lastSyncAt time.Time) error {
	_, err := db.Exec(
		`UPDATE clients SET last_sync_at = MAX(COALESCE(last_sync_at, 0), ?) WHERE id = ?`,
		lastSyncAt.UnixNano(), clientID,
	)
	return err
}

// GetClientSyncStatus returns the newest synced record time, or nil for an
// unknown client or one owned by another key
func (db *DB) GetClientSyncStatus(keyID, clientID string) (*time.Time, error) {
	var lastSync sql.NullInt64
	err := db.QueryRow(
		`SELECT last_sync_at FROM clients WHERE id = ? AND key_id = ?`,
		clientID, keyID,
	).Scan(&lastSync)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromNullNanos(lastSync), nil
}

// InsertUsageRecords stores records for a client and returns how many were new.
// Records already present for the same timestamp, model and operation are ignored.
func (db *DB) InsertUsageRecords(clientID string, records []model.UsageRecord) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO usage_records
		(client_id, timestamp, model, operation, input_tokens, output_tokens, cost, module, files_changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range records {
		var module sql.NullString
		if r.Module != nil {
			module = sql.NullString{String: *r.Module, Valid: true}
		}
		result, err := stmt.Exec(
			clientID, r.Timestamp.UnixNano(), r.Model, r.Operation,
			r.InputTokens, r.OutputTokens, r.Cost, module, r.FilesChanged,
		)
		if err != nil {
			return 0, err
		}
		n, _ := result.RowsAffected()
		inserted += n
	}

	return inserted, tx.Commit()
}

// ListUsage returns every client's records in [since, until), oldest first.
// Zero bounds are open.
func (db *DB) ListUsage(since, until time.Time) ([]model.UsageRecord, error) {
	query, args := rangeQuery(`
		SELECT timestamp, model, operation, input_tokens, output_tokens, cost, module, files_changed
		FROM usage_records`, since, until)

	rows, err := db.Query(query+" ORDER BY timestamp, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var (
			r      model.UsageRecord
			ts     int64
			module sql.NullString
		)
		if err := rows.Scan(&ts, &r.Model, &r.Operation, &r.InputTokens, &r.OutputTokens,
			&r.Cost, &module, &r.FilesChanged); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		if module.Valid {
			m := module.String
			r.Module = &m
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountClients returns how many clients have records in [since, until)
func (db *DB) CountClients(since, until time.Time) (int, error) {
	query, args := rangeQuery(`SELECT COUNT(DISTINCT client_id) FROM usage_records`, since, until)

	var n int
	err := db.QueryRow(query, args...).Scan(&n)
	return n, err
}

func rangeQuery(base string, since, until time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, since.UnixNano())
	}
	if !until.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, until.UnixNano())
	}
	for i, clause := range where {
		if i == 0 {
			base += " WHERE " + clause
		} else {
			base += " AND " + clause
		}
	}
	return base, args
}

func fromNullNanos(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
