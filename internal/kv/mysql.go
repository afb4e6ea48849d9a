// internal/kv/mysql.go
//
// MySQL-backed Store.
//
// Context
// -------
// Deployments without redis can point `storage.driver: mysql` at any
// MySQL-protocol database.  One table holds the whole namespace:
//
//	CREATE TABLE kv_entry (
//	    k          VARCHAR(512) PRIMARY KEY,
//	    v          MEDIUMBLOB   NOT NULL,
//	    expires_at TIMESTAMP    NULL DEFAULT NULL
//	);
//
// Expiry is lazy: reads filter on expires_at, and Put of a fresh value
// replaces any stale row.  A periodic sweep is left to operators (a
// simple DELETE ... WHERE expires_at < NOW() cron).
//
// Notes
// -----
// • List uses LIKE with an escaped prefix, relying on the PK index.
// • Oxford commas, two spaces after periods.
package kv

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/verge/internal/database"
)

// MySQL implements Store on a sqlx pool.
type MySQL struct {
	db *sqlx.DB
}

// NewMySQL opens a pool with the package defaults and pings once.
func NewMySQL(dsn string) (*MySQL, error) {
	db, err := database.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &MySQL{db: db}, nil
}

// WrapMySQL adopts an existing pool (tests use sqlmock through this).
func WrapMySQL(db *sqlx.DB) *MySQL { return &MySQL{db: db} }

func (m *MySQL) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT v FROM kv_entry
	            WHERE k = ? AND (expires_at IS NULL OR expires_at > NOW())`
	var val []byte
	err := m.db.GetContext(ctx, &val, q, key)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (m *MySQL) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	const q = `INSERT INTO kv_entry (k, v, expires_at) VALUES (?, ?, ?)
	            ON DUPLICATE KEY UPDATE v = VALUES(v), expires_at = VALUES(expires_at)`
	_, err := m.db.ExecContext(ctx, q, key, value, expires)
	return err
}

func (m *MySQL) Delete(ctx context.Context, key string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM kv_entry WHERE k = ?`, key)
	return err
}

func (m *MySQL) List(ctx context.Context, prefix string) ([]string, error) {
	const q = `SELECT k FROM kv_entry
	            WHERE k LIKE ? AND (expires_at IS NULL OR expires_at > NOW())
	            ORDER BY k`
	keys := make([]string, 0, 8)
	if err := m.db.SelectContext(ctx, &keys, q, escapeLike(prefix)+"%"); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close releases the pool.
func (m *MySQL) Close() error { return m.db.Close() }

// escapeLike protects LIKE metacharacters in caller-supplied prefixes.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
