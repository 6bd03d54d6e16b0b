/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"pixelpanel/internal/storage"
)

// ComicSheetPNG renders the two-column contact sheet of all six panels and
// writes it to outPath. A relative outPath lands under the comic's exports
// folder.
func ComicSheetPNG(ch *storage.ComicHandle, outPath string) error {
	if ch == nil {
		return fmt.Errorf("comic handle is nil")
	}
	img, err := storage.CompositeSheet(&ch.Comic)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode sheet: %w", err)
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ch.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	return nil
}

// ComicPanelPNGs writes each panel's best bitmap to outDir as panel-N.png.
// A relative outDir lands under the comic's exports folder.
func ComicPanelPNGs(ch *storage.ComicHandle, outDir string) ([]string, error) {
	if ch == nil {
		return nil, fmt.Errorf("comic handle is nil")
	}
	if outDir != "" && !filepath.IsAbs(outDir) {
		outDir = filepath.Join(ch.Root, "exports", outDir)
	}
	if outDir == "" {
		return storage.ExportPanelFiles(ch)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	paths, err := storage.ExportPanelFiles(ch)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		dst := filepath.Join(outDir, filepath.Base(p))
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, nil
}
