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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/storage"
)

// CBZOptions controls CBZ export.
type CBZOptions struct {
	IncludeCover bool // add the thumbnail as page 000
}

// ComicCBZ packages the comic's panels as PNG pages into a CBZ (ZIP) archive
// with a ComicInfo.xml manifest for reader compatibility. Panels without
// artwork are skipped; page numbering stays contiguous.
func ComicCBZ(ch *storage.ComicHandle, outPath string, opt CBZOptions) error {
	if ch == nil {
		return fmt.Errorf("comic handle is nil")
	}
	c := &ch.Comic

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ch.Root, "exports", outPath)
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".cbz") {
		outPath += ".cbz"
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create cbz: %w", err)
	}
	defer func() { _ = f.Close() }()
	zw := zip.NewWriter(f)

	page := 0
	if opt.IncludeCover && c.Thumbnail != "" {
		raw, err := base64.StdEncoding.DecodeString(c.Thumbnail)
		if err != nil {
			return fmt.Errorf("decode cover: %w", err)
		}
		if err := addZipFile(zw, "000.png", raw); err != nil {
			return fmt.Errorf("zip add cover: %w", err)
		}
		page++
	}
	pages := 0
	for _, p := range c.Panels {
		slot := p.LargeBitmap
		if slot == "" {
			slot = p.SmallBitmap
		}
		if slot == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(slot)
		if err != nil {
			return fmt.Errorf("panel %d: decode bitmap: %w", p.Number, err)
		}
		page++
		pages++
		if err := addZipFile(zw, fmt.Sprintf("%03d.png", page), raw); err != nil {
			return fmt.Errorf("zip add panel %d: %w", p.Number, err)
		}
	}

	manifest := buildComicInfoXML(c, pages)
	if err := addZipFile(zw, "ComicInfo.xml", []byte(manifest)); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildComicInfoXML(c *comic.Comic, pageCount int) string {
	series := c.Metadata.Series
	if series == "" {
		series = c.Title
	}
	var narrations []string
	for _, p := range c.Panels {
		if s := strings.TrimSpace(p.Narration); s != "" {
			narrations = append(narrations, s)
		}
	}
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(buf, "<ComicInfo xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\">\n")
	fmt.Fprintf(buf, "  <Series>%s</Series>\n", xmlEsc(series))
	fmt.Fprintf(buf, "  <Title>%s</Title>\n", xmlEsc(c.Title))
	fmt.Fprintf(buf, "  <PageCount>%d</PageCount>\n", pageCount)
	if c.Metadata.Author != "" {
		fmt.Fprintf(buf, "  <Writer>%s</Writer>\n", xmlEsc(c.Metadata.Author))
	}
	if len(narrations) > 0 {
		fmt.Fprintf(buf, "  <Summary>%s</Summary>\n", xmlEsc(strings.Join(narrations, " ")))
	}
	fmt.Fprintf(buf, "  <ReadingDirection>LeftToRight</ReadingDirection>\n")
	fmt.Fprintf(buf, "</ComicInfo>\n")
	return buf.String()
}

func xmlEsc(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
