/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"pixelpanel/internal/comic"
)

func TestExportPanelFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "c")
	c := sampleComic(t)
	c.Panels[3].SmallBitmap = pixelPNG(t, comic.SmallSize, comic.SmallSize)
	ch, err := InitComic(root, c)
	if err != nil {
		t.Fatalf("InitComic: %v", err)
	}
	paths, err := ExportPanelFiles(ch)
	if err != nil {
		t.Fatalf("ExportPanelFiles: %v", err)
	}
	// Panels 1 and 4 carry artwork; the rest are skipped.
	if len(paths) != 2 {
		t.Fatalf("exported %d files, want 2: %v", len(paths), paths)
	}
	for _, want := range []string{"panel-1.png", "panel-4.png"} {
		p := filepath.Join(root, "panels", want)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", want, err)
		}
	}
}

func TestCompositeSheetLayout(t *testing.T) {
	c := sampleComic(t)
	img, err := CompositeSheet(&c)
	if err != nil {
		t.Fatalf("CompositeSheet: %v", err)
	}
	wantW := 2*sheetCell + 3*sheetMargin
	wantH := 3*sheetCell + 4*sheetMargin
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Fatalf("sheet size %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
	}
	// Panel 1 occupies the top-left cell; its center pixel carries the
	// panel's solid red fill, so green stays low there.
	cx := sheetMargin + sheetCell/2
	cy := sheetMargin + sheetCell/2
	r, g, _, _ := img.At(cx, cy).RGBA()
	if r>>8 < 100 || g>>8 > 100 {
		t.Errorf("top-left cell center not painted, r=%d g=%d", r>>8, g>>8)
	}
	// An empty cell stays white.
	ex := sheetMargin + sheetCell + sheetMargin + sheetCell/2
	r2, g2, b2, _ := img.At(ex, cy).RGBA()
	if r2>>8 != 255 || g2>>8 != 255 || b2>>8 != 255 {
		t.Errorf("empty cell not white: %d %d %d", r2>>8, g2>>8, b2>>8)
	}
}

func TestCompositeSheetRejectsBadBitmap(t *testing.T) {
	c := comic.New("bad")
	c.Panels[0].SmallBitmap = "bm90IGEgcG5n" // "not a png"
	if _, err := CompositeSheet(&c); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExportCompositeSheet(t *testing.T) {
	root := filepath.Join(t.TempDir(), "c")
	ch, err := InitComic(root, sampleComic(t))
	if err != nil {
		t.Fatalf("InitComic: %v", err)
	}
	path, err := ExportCompositeSheet(ch)
	if err != nil {
		t.Fatalf("ExportCompositeSheet: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open sheet: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
	if cfg.Height <= cfg.Width {
		t.Errorf("sheet not portrait: %dx%d", cfg.Width, cfg.Height)
	}
}
