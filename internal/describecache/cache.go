// Package describecache caches sObject describe metadata in a local
// sqlite database so repeated CLI invocations do not burn API requests
// re-describing the same objects.
package describecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/fondat/salesforce-go/salesforce"
)

// DefaultTTL is how long a cached describe stays fresh.
const DefaultTTL = time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS describes (
	instance_url TEXT NOT NULL,
	api_version  TEXT NOT NULL,
	object_name  TEXT NOT NULL,
	payload      TEXT NOT NULL,
	fetched_at   INTEGER NOT NULL,
	PRIMARY KEY (instance_url, api_version, object_name)
);
`

// Cache is a sqlite-backed describe cache.
type Cache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
}

// Open creates or opens the cache database under dataDir. If dataDir
// is empty, defaults to ~/.sfq/data.
func Open(dataDir string) (*Cache, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sfq", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "describe.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db, path: dbPath, ttl: DefaultTTL}, nil
}

// SetTTL overrides the freshness window.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached describe for an object, or ok=false on a miss
// or stale entry.
func (c *Cache) Get(ctx context.Context, instanceURL, apiVersion, object string) (*salesforce.SObject, bool, error) {
	var (
		payload   string
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM describes
		 WHERE instance_url = ? AND api_version = ? AND object_name = ?`,
		instanceURL, apiVersion, object,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false, nil
	}

	var meta salesforce.SObject
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, false, nil
	}
	return &meta, true, nil
}

// Put stores a describe payload.
func (c *Cache) Put(ctx context.Context, instanceURL, apiVersion string, meta *salesforce.SObject) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode describe: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO describes (instance_url, api_version, object_name, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (instance_url, api_version, object_name)
		 DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		instanceURL, apiVersion, meta.Name, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store describe: %w", err)
	}
	return nil
}

// Purge drops all cached entries.
func (c *Cache) Purge(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM describes`); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}
