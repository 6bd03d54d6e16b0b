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
	"os"
	"path/filepath"

	"pixelpanel/internal/comic"
)

const autosaveFileName = "autosave.json"

// AutosavePath returns where the crash-recovery snapshot for this comic lives.
func AutosavePath(root string) string {
	return filepath.Join(root, BackupsDirName, autosaveFileName)
}

// WriteAutosave snapshots the in-memory comic for crash recovery. Unlike
// Save, it never touches the manifest or the backup chain; it just keeps one
// rolling file current.
func WriteAutosave(root string, c *comic.Comic) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal autosave: %w", err)
	}
	path := AutosavePath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	temp := path + ".tmp"
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write autosave: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace autosave: %w", err)
	}
	return nil
}

// ReadAutosave loads a crash-recovery snapshot if one exists.
// Returns (nil, nil) when there is none.
func ReadAutosave(root string) (*comic.Comic, error) {
	b, err := os.ReadFile(AutosavePath(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read autosave: %w", err)
	}
	return parseManifest(b)
}

// ClearAutosave removes the snapshot after a successful regular save.
func ClearAutosave(root string) error {
	err := os.Remove(AutosavePath(root))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear autosave: %w", err)
	}
	return nil
}
