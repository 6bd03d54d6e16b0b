/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package comic defines the core data model for PixelPanel comics.
// A comic is a fixed board of six panels; each panel carries the user's prompt,
// an optional narration, and two committed bitmap slots (grid-sized and
// zoomed-sized) encoded as base64 PNG without a data-URI prefix.
package comic

import (
	"errors"
	"fmt"
	"strings"
)

// Board geometry. The grid view shows all panels at small size in 3 columns;
// the zoomed view shows a single panel at large size.
const (
	BoardPanels = 6
	GridCols    = 3
	GridRows    = 2

	// Surface pixel dimensions. The two sizes are distinct raster buffers;
	// panel state is handed between them only as encoded bitmaps.
	SmallSize = 256
	LargeSize = 1024
)

// Tool selects how strokes paint onto a surface.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

// Panel is one of the six ordered comic-frame slots.
// Number is 1-based. Bitmap slots are empty strings when nothing has been
// committed yet.
type Panel struct {
	Number       int    `json:"number"`
	Prompt       string `json:"prompt,omitempty"`
	Narration    string `json:"narration,omitempty"`
	SmallBitmap  string `json:"small_bitmap,omitempty"`
	LargeBitmap  string `json:"large_bitmap,omitempty"`
	AudioData    string `json:"audio_data,omitempty"` // base64 MP3 narration audio
	AudioURL     string `json:"audio_url,omitempty"`  // remote URL once published
	RemoteURL    string `json:"remote_url,omitempty"` // remote panel image once published
}

// HasArtwork reports whether the panel holds any committed drawing.
func (p Panel) HasArtwork() bool {
	return p.LargeBitmap != "" || p.SmallBitmap != ""
}

// Metadata contains optional descriptive metadata for a comic.
type Metadata struct {
	Author string `json:"author,omitempty"`
	Series string `json:"series,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Comic is the unit of authoring, saving and publishing.
type Comic struct {
	Title     string   `json:"title"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Panels    []Panel  `json:"panels"`
	Thumbnail string   `json:"thumbnail,omitempty"` // base64 PNG cover, 3:4
	IsPublic  bool     `json:"is_public"`
	RemoteID  string   `json:"remote_id,omitempty"` // server-side comic id once saved remotely
}

// New returns an empty comic with all six panels initialized.
func New(title string) Comic {
	c := Comic{Title: title, Panels: make([]Panel, BoardPanels)}
	for i := range c.Panels {
		c.Panels[i].Number = i + 1
	}
	return c
}

// PanelByNumber returns a pointer to the panel with the given 1-based number.
func (c *Comic) PanelByNumber(n int) (*Panel, error) {
	if n < 1 || n > len(c.Panels) {
		return nil, fmt.Errorf("panel number %d out of range 1..%d", n, len(c.Panels))
	}
	for i := range c.Panels {
		if c.Panels[i].Number == n {
			return &c.Panels[i], nil
		}
	}
	return nil, fmt.Errorf("panel %d missing", n)
}

// Validate checks structural invariants of a comic.
func (c *Comic) Validate() error {
	if len(c.Panels) != BoardPanels {
		return fmt.Errorf("comic must have exactly %d panels, has %d", BoardPanels, len(c.Panels))
	}
	seen := map[int]bool{}
	for _, p := range c.Panels {
		if p.Number < 1 || p.Number > BoardPanels {
			return fmt.Errorf("panel number %d out of range", p.Number)
		}
		if seen[p.Number] {
			return fmt.Errorf("duplicate panel number %d", p.Number)
		}
		seen[p.Number] = true
	}
	return nil
}

// ErrNotPublishable wraps the reasons a comic cannot be made public.
var ErrNotPublishable = errors.New("comic not publishable")

// ValidatePublishable enforces the publish contract: a title, a cover
// thumbnail, and a narration on every panel that has artwork.
func (c *Comic) ValidatePublishable() error {
	var reasons []string
	if strings.TrimSpace(c.Title) == "" {
		reasons = append(reasons, "title is required")
	}
	if c.Thumbnail == "" {
		reasons = append(reasons, "cover thumbnail is required")
	}
	for _, p := range c.Panels {
		if p.HasArtwork() && strings.TrimSpace(p.Narration) == "" {
			reasons = append(reasons, fmt.Sprintf("panel %d needs a narration", p.Number))
		}
	}
	if len(reasons) > 0 {
		return fmt.Errorf("%w: %s", ErrNotPublishable, strings.Join(reasons, "; "))
	}
	return nil
}
