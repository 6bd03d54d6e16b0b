/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pixelpanel/internal/comic"
)

const (
	ManifestFileName = "comic.json"
	BackupsDirName   = "backups"
)

// Standard subfolders of a comic directory.
var standardSubDirs = []string{
	"panels",
	"audio",
	"exports",
	BackupsDirName,
}

// ComicHandle keeps track of one comic directory on disk.
// Root contains comic.json and the standard subfolders.
type ComicHandle struct {
	Root         string
	ManifestPath string
	Comic        comic.Comic
}

// InitComic creates a new comic directory at root (creating it if it doesn't
// exist), scaffolds the standard subfolders, and writes the manifest
// transactionally.
func InitComic(root string, c comic.Comic) (*ComicHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create comic root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	ch := &ComicHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Comic:        c,
	}
	if err := Save(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// Open loads an existing comic from the given root directory.
// If the current manifest cannot be read, parsed or validated, the latest
// backup is tried.
func Open(root string) (*ComicHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		c, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &ComicHandle{Root: root, ManifestPath: mpath, Comic: *c}, nil
	}
	c, perr := parseManifest(b)
	if perr != nil {
		bc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", perr, berr)
		}
		return &ComicHandle{Root: root, ManifestPath: mpath, Comic: *bc}, nil
	}
	return &ComicHandle{Root: root, ManifestPath: mpath, Comic: *c}, nil
}

// parseManifest decodes and schema-validates manifest bytes.
func parseManifest(b []byte) (*comic.Comic, error) {
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	var c comic.Comic
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the handle's comic to disk with transactional semantics and a
// timestamped backup of the previous manifest (if present).
func Save(ch *ComicHandle) error {
	if ch == nil {
		return errors.New("nil ComicHandle")
	}
	if ch.Root == "" || ch.ManifestPath == "" {
		return errors.New("invalid ComicHandle: missing paths")
	}
	data, err := json.MarshalIndent(ch.Comic, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ch.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// Keep a timestamped copy of the current manifest before replacing it.
	if _, statErr := os.Stat(ch.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(ch.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, then rename.
	dir := filepath.Dir(ch.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(ch.ManifestPath); err == nil {
		_ = os.Remove(ch.ManifestPath)
	}
	if rerr := os.Rename(temp, ch.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// SaveAs writes the comic to a new root folder, scaffolding structure if
// needed, and updates the handle.
func SaveAs(ch *ComicHandle, newRoot string) error {
	if ch == nil {
		return errors.New("nil ComicHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(newRoot, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	ch.Root = newRoot
	ch.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(ch)
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup tries manifest backups newest first until one parses.
func openFromLatestBackup(root string) (*comic.Comic, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		if c, err := parseManifest(b); err == nil {
			return c, nil
		}
	}
	return nil, errors.New("no readable backup found")
}
