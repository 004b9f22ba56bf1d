// Package store is the content store the pipeline writes into: one row
// per logical card keyed by (series, number, language), plus the set of
// uploaded asset keys used to diff out missing images. Backed by a
// local SQLite file so ingestion runs are self-contained.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/guarzo/cardseed/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS cards (
	series_code TEXT NOT NULL,
	number      TEXT NOT NULL,
	language    TEXT NOT NULL,
	name        TEXT NOT NULL,
	rarity      TEXT,
	finish      TEXT NOT NULL DEFAULT 'standard',
	attributes  TEXT NOT NULL DEFAULT '{}',
	image_url   TEXT,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (series_code, number, language)
);

CREATE TABLE IF NOT EXISTS assets (
	key         TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	uploaded_at TEXT NOT NULL
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path with WAL and a
// busy timeout applied, and ensures the schema exists. ":memory:"
// works for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// UpsertCard inserts or replaces the record for the card's composite
// key. Conflict resolution is replace: last writer wins, no merge of
// partial fields.
func (s *Store) UpsertCard(ctx context.Context, c model.Card) error {
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes for %s: %w", c.Key(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (series_code, number, language, name, rarity, finish, attributes, image_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_code, number, language) DO UPDATE SET
		  name = excluded.name,
		  rarity = excluded.rarity,
		  finish = excluded.finish,
		  attributes = excluded.attributes,
		  image_url = excluded.image_url,
		  updated_at = excluded.updated_at
	`,
		c.SeriesCode, c.Number, string(c.Language), c.Name,
		nullable(c.Rarity), string(c.Finish), string(attrs),
		nullable(c.ImageURL), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert card %s: %w", c.Key(), err)
	}
	return nil
}

// Filter narrows QueryCards. Zero values match everything.
type Filter struct {
	SeriesCode string
	Language   model.Language
	Rarity     string // canonical id as stored
}

// QueryCards returns stored cards matching the filter, ordered by
// series then number text (callers needing ingestion order re-sort
// with model.CompareNumbers).
func (s *Store) QueryCards(ctx context.Context, f Filter) ([]model.Card, error) {
	query := `SELECT series_code, number, language, name, rarity, finish, attributes, image_url FROM cards WHERE 1=1`
	var args []any
	if f.SeriesCode != "" {
		query += " AND series_code = ?"
		args = append(args, f.SeriesCode)
	}
	if f.Language != "" {
		query += " AND language = ?"
		args = append(args, string(f.Language))
	}
	if f.Rarity != "" {
		query += " AND rarity = ?"
		args = append(args, f.Rarity)
	}
	query += " ORDER BY series_code, number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var out []model.Card
	for rows.Next() {
		var c model.Card
		var lang, finish, attrs string
		var rarity, imageURL sql.NullString
		if err := rows.Scan(&c.SeriesCode, &c.Number, &lang, &c.Name, &rarity, &finish, &attrs, &imageURL); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Language = model.Language(lang)
		c.Finish = model.Finish(finish)
		c.Rarity = rarity.String
		c.ImageURL = imageURL.String
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &c.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal attributes for %s: %w", c.Key(), err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordAsset remembers that an asset was uploaded under key,
// overwriting any prior URL for the same key.
func (s *Store) RecordAsset(ctx context.Context, key, url string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (key, url, uploaded_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET url = excluded.url, uploaded_at = excluded.uploaded_at
	`, key, url, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record asset %s: %w", key, err)
	}
	return nil
}

// ListStoredAssetKeys returns the uploaded asset keys for one
// partition, used to compute the missing-image set by diffing against
// stored records.
func (s *Store) ListStoredAssetKeys(ctx context.Context, series string, lang model.Language) (map[string]bool, error) {
	prefix := series + "/" + string(lang) + "/"
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM assets WHERE key LIKE ?`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list asset keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan asset key: %w", err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
