/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pixelpanel/internal/comic"
)

const (
	indexDirName  = ".pixelpanel"
	indexFileName = "index.sqlite"

	// Bump when the index schema changes; migrations below carry old
	// databases forward.
	indexSchemaVersion = 1
)

// Index is the per-library SQLite catalog of comics. It lives at
// <library>/.pixelpanel/index.sqlite and exists purely as derived data:
// it can always be rebuilt by rescanning the comic folders.
type Index struct {
	db   *sql.DB
	Path string
}

// IndexPath returns the index file location for a library root.
func IndexPath(libraryRoot string) string {
	return filepath.Join(libraryRoot, indexDirName, indexFileName)
}

// InitOrOpenIndex opens (creating if necessary) the library index and applies
// schema migrations.
func InitOrOpenIndex(libraryRoot string) (*Index, error) {
	path := IndexPath(libraryRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// modernc.org/sqlite is safest with a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	idx := &Index{db: db, Path: path}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the underlying database handle.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

func (x *Index) migrate() error {
	if _, err := x.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	var current int
	err := x.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := current + 1; v <= indexSchemaVersion; v++ {
		stmts, ok := indexMigrations[v]
		if !ok {
			return fmt.Errorf("missing index migration for version %d", v)
		}
		tx, err := x.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v, err)
		}
		for _, s := range stmts {
			if _, err := tx.Exec(s); err != nil {
				tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", v, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value`, fmt.Sprint(v)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v, err)
		}
	}
	return nil
}

var indexMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS comics (
			id INTEGER PRIMARY KEY,
			root TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			prompts TEXT NOT NULL DEFAULT '',
			narrations TEXT NOT NULL DEFAULT '',
			is_public INTEGER NOT NULL DEFAULT 0,
			remote_id TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS comics_fts USING fts5(
			title, prompts, narrations,
			content='comics', content_rowid='id'
		);`,
		`CREATE TRIGGER IF NOT EXISTS comics_ai AFTER INSERT ON comics BEGIN
			INSERT INTO comics_fts(rowid, title, prompts, narrations)
			VALUES (new.id, new.title, new.prompts, new.narrations);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS comics_ad AFTER DELETE ON comics BEGIN
			INSERT INTO comics_fts(comics_fts, rowid, title, prompts, narrations)
			VALUES ('delete', old.id, old.title, old.prompts, old.narrations);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS comics_au AFTER UPDATE ON comics BEGIN
			INSERT INTO comics_fts(comics_fts, rowid, title, prompts, narrations)
			VALUES ('delete', old.id, old.title, old.prompts, old.narrations);
			INSERT INTO comics_fts(rowid, title, prompts, narrations)
			VALUES (new.id, new.title, new.prompts, new.narrations);
		END;`,
	},
}

// UpsertComic records (or refreshes) a comic's searchable text in the index.
func (x *Index) UpsertComic(root string, c *comic.Comic) error {
	var prompts, narrations []string
	for _, p := range c.Panels {
		if s := strings.TrimSpace(p.Prompt); s != "" {
			prompts = append(prompts, s)
		}
		if s := strings.TrimSpace(p.Narration); s != "" {
			narrations = append(narrations, s)
		}
	}
	isPublic := 0
	if c.IsPublic {
		isPublic = 1
	}
	_, err := x.db.Exec(`INSERT INTO comics(root, title, prompts, narrations, is_public, remote_id, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(root) DO UPDATE SET
			title=excluded.title,
			prompts=excluded.prompts,
			narrations=excluded.narrations,
			is_public=excluded.is_public,
			remote_id=excluded.remote_id,
			updated_at=excluded.updated_at`,
		root, c.Title, strings.Join(prompts, "\n"), strings.Join(narrations, "\n"),
		isPublic, c.RemoteID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert comic %s: %w", root, err)
	}
	return nil
}

// RemoveComic drops a comic folder from the index.
func (x *Index) RemoveComic(root string) error {
	if _, err := x.db.Exec(`DELETE FROM comics WHERE root=?`, root); err != nil {
		return fmt.Errorf("remove comic %s: %w", root, err)
	}
	return nil
}

// Hit is one search result from the library index.
type Hit struct {
	Root  string
	Title string
}

// Search runs a full-text query over titles, prompts and narrations.
// An empty query lists every comic, newest first.
func (x *Index) Search(query string) ([]Hit, error) {
	query = strings.TrimSpace(query)
	var rows *sql.Rows
	var err error
	if query == "" {
		rows, err = x.db.Query(`SELECT root, title FROM comics ORDER BY updated_at DESC`)
	} else {
		rows, err = x.db.Query(`SELECT c.root, c.title
			FROM comics_fts f JOIN comics c ON c.id = f.rowid
			WHERE comics_fts MATCH ?
			ORDER BY rank`, ftsQuery(query))
	}
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Root, &h.Title); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each term so user input can't break MATCH syntax, and adds
// prefix matching on the final term for type-ahead search.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		if i == len(terms)-1 {
			terms[i] = `"` + t + `"*`
		} else {
			terms[i] = `"` + t + `"`
		}
	}
	return strings.Join(terms, " ")
}

// RebuildFromLibrary drops all rows and re-indexes every comic folder found
// directly under the library root (a folder counts when it holds comic.json).
func (x *Index) RebuildFromLibrary(libraryRoot string) error {
	if _, err := x.db.Exec(`DELETE FROM comics`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	ents, err := os.ReadDir(libraryRoot)
	if err != nil {
		return fmt.Errorf("read library root: %w", err)
	}
	for _, e := range ents {
		if !e.IsDir() || e.Name() == indexDirName {
			continue
		}
		root := filepath.Join(libraryRoot, e.Name())
		ch, err := Open(root)
		if err != nil {
			continue // not a comic folder, or unreadable
		}
		if err := x.UpsertComic(root, &ch.Comic); err != nil {
			return err
		}
	}
	return nil
}

// CheckAndRebuild verifies index integrity with PRAGMA quick_check and, on
// corruption, moves the damaged file aside and rebuilds from the library.
// Returns true when a rebuild happened.
func CheckAndRebuild(libraryRoot string) (*Index, bool, error) {
	idx, err := InitOrOpenIndex(libraryRoot)
	if err == nil {
		var res string
		if qerr := idx.db.QueryRow(`PRAGMA quick_check;`).Scan(&res); qerr == nil && res == "ok" {
			return idx, false, nil
		}
		idx.Close()
	}
	// Damaged or unopenable: keep the evidence, then start over.
	path := IndexPath(libraryRoot)
	_ = os.Rename(path, path+".corrupt-"+time.Now().Format("20060102-150405"))
	idx, err = InitOrOpenIndex(libraryRoot)
	if err != nil {
		return nil, false, err
	}
	if err := idx.RebuildFromLibrary(libraryRoot); err != nil {
		idx.Close()
		return nil, false, err
	}
	return idx, true, nil
}
