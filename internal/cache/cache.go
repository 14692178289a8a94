// Package cache provides the sqlite-backed chart cache and catalog.
// The files table avoids rehashing unchanged files, the charts table
// stores synthesized charts by content digest, and the catalog records
// the last generated run for drift reporting.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/kyle0527/mermaid-dist/internal/cas"
	"github.com/kyle0527/mermaid-dist/internal/chart"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	digest TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS charts (
	digest TEXT NOT NULL,
	name TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (digest, name)
);
CREATE TABLE IF NOT EXISTS catalog (
	path TEXT NOT NULL,
	idx INTEGER NOT NULL,
	title TEXT NOT NULL,
	mermaid TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (path, idx)
);
`

// DotDir is the per-project state directory.
const DotDir = ".py2mermaid"

const dbFile = "cache.db"

// Cache wraps the sqlite database plus zstd codecs.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the cache at {baseDir}/.py2mermaid/cache.db.
func Open(baseDir string) (*Cache, error) {
	dir := filepath.Join(baseDir, DotDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	db.Exec("PRAGMA busy_timeout=5000")
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Cache{db: db, enc: enc, dec: dec}, nil
}

// Close closes the database and codecs.
func (c *Cache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// Remove deletes the cache database for baseDir. Missing is not an
// error.
func Remove(baseDir string) error {
	path := filepath.Join(baseDir, DotDir, dbFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	// WAL sidecars
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
	return nil
}

// Digest returns the BLAKE3 digest for a file, reusing the cached
// value when (size, mtime) is unchanged.
func (c *Cache) Digest(path string, info os.FileInfo, content []byte) (string, error) {
	size := info.Size()
	mtime := info.ModTime().UnixNano()

	var cachedSize, cachedMtime int64
	var cachedDigest string
	err := c.db.QueryRow(
		"SELECT size, mtime, digest FROM files WHERE path = ?", path,
	).Scan(&cachedSize, &cachedMtime, &cachedDigest)
	if err == nil && cachedSize == size && cachedMtime == mtime {
		return cachedDigest, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("querying file cache: %w", err)
	}

	digest := cas.Blake3HashHex(content)
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO files (path, size, mtime, digest) VALUES (?, ?, ?, ?)`,
		path, size, mtime, digest,
	)
	if err != nil {
		return "", fmt.Errorf("updating file cache: %w", err)
	}
	return digest, nil
}

// GetCharts returns the cached charts for a content digest and file
// name, if any. Chart titles embed the file name, so identical content
// under different names must not share an entry.
func (c *Cache) GetCharts(digest, name string) ([]chart.Chart, bool, error) {
	var payload []byte
	err := c.db.QueryRow(
		"SELECT payload FROM charts WHERE digest = ? AND name = ?", digest, name,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying chart cache: %w", err)
	}

	data, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing charts: %w", err)
	}
	var charts []chart.Chart
	if err := json.Unmarshal(data, &charts); err != nil {
		return nil, false, fmt.Errorf("decoding charts: %w", err)
	}
	return charts, true, nil
}

// PutCharts stores charts for a content digest and file name.
func (c *Cache) PutCharts(digest, name string, charts []chart.Chart) error {
	data, err := json.Marshal(charts)
	if err != nil {
		return fmt.Errorf("encoding charts: %w", err)
	}
	payload := c.enc.EncodeAll(data, nil)

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO charts (digest, name, payload, created_at) VALUES (?, ?, ?, ?)`,
		digest, name, payload, cas.NowMs(),
	)
	if err != nil {
		return fmt.Errorf("updating chart cache: %w", err)
	}
	return nil
}

// Catalog returns the last recorded charts per file path.
func (c *Cache) Catalog() (map[string][]chart.Chart, error) {
	rows, err := c.db.Query("SELECT path, idx, title, mermaid FROM catalog ORDER BY path, idx")
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]chart.Chart)
	for rows.Next() {
		var path, title, mermaid string
		var idx int
		if err := rows.Scan(&path, &idx, &title, &mermaid); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		out[path] = append(out[path], chart.Chart{Title: title, Mermaid: mermaid})
	}
	return out, rows.Err()
}

// UpdateCatalog replaces the recorded charts for one file path.
func (c *Cache) UpdateCatalog(path string, charts []chart.Chart) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("starting catalog tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM catalog WHERE path = ?", path); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	now := cas.NowMs()
	for i, ch := range charts {
		_, err := tx.Exec(
			`INSERT INTO catalog (path, idx, title, mermaid, updated_at) VALUES (?, ?, ?, ?, ?)`,
			path, i, ch.Title, ch.Mermaid, now,
		)
		if err != nil {
			return fmt.Errorf("inserting catalog row: %w", err)
		}
	}
	return tx.Commit()
}

// DropCatalogPath removes a file's charts from the catalog (for files
// that disappeared between runs).
func (c *Cache) DropCatalogPath(path string) error {
	_, err := c.db.Exec("DELETE FROM catalog WHERE path = ?", path)
	return err
}

// PruneCatalog drops catalog rows for every path not present in keep,
// so the catalog always reflects exactly the last generated run.
func (c *Cache) PruneCatalog(keep map[string]bool) error {
	rows, err := c.db.Query("SELECT DISTINCT path FROM catalog")
	if err != nil {
		return fmt.Errorf("querying catalog paths: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return fmt.Errorf("scanning catalog path: %w", err)
		}
		if !keep[path] {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, path := range stale {
		if err := c.DropCatalogPath(path); err != nil {
			return fmt.Errorf("dropping catalog path %s: %w", path, err)
		}
	}
	return nil
}
