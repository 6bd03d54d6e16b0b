/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package comic

import (
	"errors"
	"strings"
	"testing"
)

func TestNewBoardShape(t *testing.T) {
	c := New("Test Comic")
	if len(c.Panels) != BoardPanels {
		t.Fatalf("expected %d panels, got %d", BoardPanels, len(c.Panels))
	}
	for i, p := range c.Panels {
		if p.Number != i+1 {
			t.Fatalf("panel %d has number %d", i, p.Number)
		}
		if p.HasArtwork() {
			t.Fatalf("new panel %d should be empty", p.Number)
		}
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestPanelByNumber(t *testing.T) {
	c := New("x")
	p, err := c.PanelByNumber(4)
	if err != nil {
		t.Fatalf("PanelByNumber: %v", err)
	}
	p.Prompt = "a dragon"
	if c.Panels[3].Prompt != "a dragon" {
		t.Fatalf("expected pointer into comic, got copy")
	}
	if _, err := c.PanelByNumber(0); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := c.PanelByNumber(7); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	c := New("x")
	c.Panels[1].Number = 1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected duplicate panel error")
	}
}

func TestValidatePublishable(t *testing.T) {
	c := New("")
	c.Panels[0].LargeBitmap = "abc"
	err := c.ValidatePublishable()
	if err == nil {
		t.Fatalf("expected not publishable")
	}
	if !errors.Is(err, ErrNotPublishable) {
		t.Fatalf("expected ErrNotPublishable, got %v", err)
	}
	if !strings.Contains(err.Error(), "title") || !strings.Contains(err.Error(), "panel 1") {
		t.Fatalf("missing reasons: %v", err)
	}

	c.Title = "My Comic"
	c.Thumbnail = "cover"
	c.Panels[0].Narration = "Once upon a time"
	if err := c.ValidatePublishable(); err != nil {
		t.Fatalf("expected publishable, got %v", err)
	}
}
