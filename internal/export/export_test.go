/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/storage"
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func testHandle(t *testing.T) *storage.ComicHandle {
	t.Helper()
	c := comic.New("Harbor Lights")
	c.Metadata.Author = "mika"
	c.Metadata.Series = "Harbor"
	c.Thumbnail = solidPNG(t, 96, 128, color.RGBA{B: 180, A: 255})
	for i := 0; i < 4; i++ {
		c.Panels[i].LargeBitmap = solidPNG(t, 64, 64, color.RGBA{R: 180, A: 255})
		c.Panels[i].Narration = "And so it went."
	}
	ch, err := storage.InitComic(filepath.Join(t.TempDir(), "harbor"), c)
	if err != nil {
		t.Fatalf("InitComic: %v", err)
	}
	return ch
}

func TestComicPDF(t *testing.T) {
	ch := testHandle(t)
	if err := ComicPDF(ch, "comic.pdf", PDFOptions{IncludeCover: true, IncludeNarrations: true}); err != nil {
		t.Fatalf("ComicPDF: %v", err)
	}
	out := filepath.Join(ch.Root, "exports", "comic.pdf")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output is not a PDF, starts with %q", data[:8])
	}
	if len(data) < 1000 {
		t.Errorf("pdf suspiciously small: %d bytes", len(data))
	}
}

func TestComicCBZ(t *testing.T) {
	ch := testHandle(t)
	if err := ComicCBZ(ch, "comic", CBZOptions{IncludeCover: true}); err != nil {
		t.Fatalf("ComicCBZ: %v", err)
	}
	out := filepath.Join(ch.Root, "exports", "comic.cbz")
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open cbz: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	// Cover plus four artwork panels plus the manifest.
	for _, want := range []string{"000.png", "001.png", "004.png", "ComicInfo.xml"} {
		if !names[want] {
			t.Errorf("cbz missing %s (have %v)", want, names)
		}
	}
	if names["005.png"] {
		t.Error("empty panels should not produce pages")
	}

	var manifest string
	for _, f := range zr.File {
		if f.Name != "ComicInfo.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		var sb strings.Builder
		buf := make([]byte, 4096)
		for {
			n, rerr := rc.Read(buf)
			sb.Write(buf[:n])
			if rerr != nil {
				break
			}
		}
		rc.Close()
		manifest = sb.String()
	}
	for _, want := range []string{
		"<Series>Harbor</Series>",
		"<Title>Harbor Lights</Title>",
		"<PageCount>4</PageCount>",
		"<Writer>mika</Writer>",
	} {
		if !strings.Contains(manifest, want) {
			t.Errorf("manifest missing %s:\n%s", want, manifest)
		}
	}
}

func TestComicSheetPNG(t *testing.T) {
	ch := testHandle(t)
	if err := ComicSheetPNG(ch, "sheet.png"); err != nil {
		t.Fatalf("ComicSheetPNG: %v", err)
	}
	f, err := os.Open(filepath.Join(ch.Root, "exports", "sheet.png"))
	if err != nil {
		t.Fatalf("open sheet: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("decode sheet: %v", err)
	}
}

func TestXMLEscaping(t *testing.T) {
	c := comic.New(`Cats & <Dogs> "forever"`)
	got := buildComicInfoXML(&c, 0)
	if strings.Contains(got, "Cats & <Dogs>") {
		t.Errorf("unescaped xml:\n%s", got)
	}
	if !strings.Contains(got, "Cats &amp; &lt;Dogs&gt; &quot;forever&quot;") {
		t.Errorf("escape output wrong:\n%s", got)
	}
}

func TestBatchExportWebPreset(t *testing.T) {
	ch := testHandle(t)
	if err := BatchExport(ch, BatchOptions{Preset: PresetWeb}); err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	base := filepath.Join(ch.Root, "exports", "web")
	for _, want := range []string{"sheet.png", "comic.cbz", filepath.Join("png", "panel-1.png")} {
		if _, err := os.Stat(filepath.Join(base, want)); err != nil {
			t.Errorf("missing %s: %v", want, err)
		}
	}
	// Web preset leaves out the PDF.
	if _, err := os.Stat(filepath.Join(base, "comic.pdf")); err == nil {
		t.Error("web preset should not export pdf")
	}
}

func TestBatchExportRejectsUnknownFormat(t *testing.T) {
	ch := testHandle(t)
	if err := BatchExport(ch, BatchOptions{Formats: []string{"docx"}}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
