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
	"strconv"
	"time"
)

// DefaultMaxPreviewsBytes caps the preview cache at 256 MiB unless overridden.
const DefaultMaxPreviewsBytes int64 = 256 << 20

// MaxPreviewsBytesFromEnv reads PXP_PREVIEWS_MAX_BYTES, falling back to the
// default on absence or garbage.
func MaxPreviewsBytesFromEnv() int64 {
	v := os.Getenv("PXP_PREVIEWS_MAX_BYTES")
	if v == "" {
		return DefaultMaxPreviewsBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return DefaultMaxPreviewsBytes
	}
	return n
}

// EnsurePreviewsMigrated creates the preview cache table. The cache sits next
// to the comics catalog in the same index database but is versioned
// independently so older indexes pick it up on open.
func (x *Index) EnsurePreviewsMigrated() error {
	_, err := x.db.Exec(`CREATE TABLE IF NOT EXISTS previews (
		comic_root TEXT NOT NULL,
		panel_number INTEGER NOT NULL,
		png BLOB NOT NULL,
		size_bytes INTEGER NOT NULL,
		last_access INTEGER NOT NULL,
		PRIMARY KEY (comic_root, panel_number)
	);`)
	if err != nil {
		return fmt.Errorf("create previews table: %w", err)
	}
	return nil
}

// PutPreview stores (or replaces) a panel's cached grid thumbnail and then
// evicts least-recently-used entries until the cache fits the byte budget.
func (x *Index) PutPreview(comicRoot string, panelNumber int, png []byte) error {
	if len(png) == 0 {
		return errors.New("empty preview")
	}
	_, err := x.db.Exec(`INSERT INTO previews(comic_root, panel_number, png, size_bytes, last_access)
		VALUES (?,?,?,?,?)
		ON CONFLICT(comic_root, panel_number) DO UPDATE SET
			png=excluded.png,
			size_bytes=excluded.size_bytes,
			last_access=excluded.last_access`,
		comicRoot, panelNumber, png, len(png), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	return x.EvictPreviewsToFit(MaxPreviewsBytesFromEnv())
}

// GetPreview returns a cached thumbnail and refreshes its access time.
// Returns (nil, nil) on a cache miss.
func (x *Index) GetPreview(comicRoot string, panelNumber int) ([]byte, error) {
	var png []byte
	err := x.db.QueryRow(`SELECT png FROM previews WHERE comic_root=? AND panel_number=?`,
		comicRoot, panelNumber).Scan(&png)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}
	_, _ = x.db.Exec(`UPDATE previews SET last_access=? WHERE comic_root=? AND panel_number=?`,
		time.Now().UnixNano(), comicRoot, panelNumber)
	return png, nil
}

// DeletePreviews drops all cached thumbnails for a comic.
func (x *Index) DeletePreviews(comicRoot string) error {
	if _, err := x.db.Exec(`DELETE FROM previews WHERE comic_root=?`, comicRoot); err != nil {
		return fmt.Errorf("delete previews: %w", err)
	}
	return nil
}

// EvictPreviewsToFit removes the oldest entries (by last access) until the
// total cached bytes fit within maxBytes.
func (x *Index) EvictPreviewsToFit(maxBytes int64) error {
	var total sql.NullInt64
	if err := x.db.QueryRow(`SELECT SUM(size_bytes) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum preview bytes: %w", err)
	}
	if !total.Valid || total.Int64 <= maxBytes {
		return nil
	}
	rows, err := x.db.Query(`SELECT comic_root, panel_number, size_bytes FROM previews ORDER BY last_access ASC`)
	if err != nil {
		return fmt.Errorf("list previews for eviction: %w", err)
	}
	type key struct {
		root string
		n    int
	}
	var victims []key
	over := total.Int64 - maxBytes
	for rows.Next() && over > 0 {
		var k key
		var size int64
		if err := rows.Scan(&k.root, &k.n, &size); err != nil {
			rows.Close()
			return err
		}
		victims = append(victims, k)
		over -= size
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, k := range victims {
		if _, err := x.db.Exec(`DELETE FROM previews WHERE comic_root=? AND panel_number=?`, k.root, k.n); err != nil {
			return fmt.Errorf("evict preview: %w", err)
		}
	}
	return nil
}
