/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
	"testing"

	"pixelpanel/internal/comic"
)

const sampleScript = `Title: The Fox and the City
Author: Mika

Panel 1: a fox watching the skyline at dusk @noir
  NARRATION: Night fell over the city.
Panel 2: the fox slips through a chain-link fence
  with streetlights glowing behind it
Panel 3: close-up of the fox's eyes @noir @closeup
  NARRATION: Somewhere out there
    was the thing it had lost.
; remember to make panel 3 darker
Panel 6: the fox curled up on a rooftop at dawn
`

func TestParseSample(t *testing.T) {
	ps, errs := Parse(sampleScript)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if ps.Title != "The Fox and the City" {
		t.Fatalf("title = %q", ps.Title)
	}
	if ps.Author != "Mika" {
		t.Fatalf("author = %q", ps.Author)
	}
	if len(ps.Panels) != 4 {
		t.Fatalf("expected 4 panels, got %d", len(ps.Panels))
	}
	p1 := ps.Panels[0]
	if p1.Number != 1 || p1.Narration != "Night fell over the city." {
		t.Fatalf("panel 1 = %+v", p1)
	}
	if len(p1.Tags) != 1 || p1.Tags[0] != "noir" {
		t.Fatalf("panel 1 tags = %v", p1.Tags)
	}
	p2 := ps.Panels[1]
	if !strings.Contains(p2.Prompt, "fence") || !strings.Contains(p2.Prompt, "streetlights") {
		t.Fatalf("panel 2 prompt continuation lost: %q", p2.Prompt)
	}
	p3 := ps.Panels[2]
	if !strings.Contains(p3.Narration, "was the thing it had lost.") {
		t.Fatalf("panel 3 narration continuation lost: %q", p3.Narration)
	}
	if len(p3.Tags) != 2 {
		t.Fatalf("panel 3 tags = %v", p3.Tags)
	}
	if ps.Panels[3].Number != 6 {
		t.Fatalf("panel 4 number = %d", ps.Panels[3].Number)
	}
}

func TestParseErrors(t *testing.T) {
	in := `Panel 7: too many
Panel 2: fine
Panel 2: again
NARRATION: floating
what is this line
`
	ps, errs := Parse(in)
	if len(ps.Panels) != 1 || ps.Panels[0].Number != 2 {
		t.Fatalf("panels = %+v", ps.Panels)
	}
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	wants := []string{"out of range", "already defined", "narration before any panel", "unrecognized line"}
	for i, w := range wants {
		if !strings.Contains(errs[i].Message, w) {
			t.Errorf("error %d = %q, want substring %q", i, errs[i].Message, w)
		}
	}
}

func TestApplyToComic(t *testing.T) {
	ps, errs := Parse(sampleScript)
	if len(errs) != 0 {
		t.Fatalf("parse: %v", errs)
	}
	c := comic.New("Old Title")
	p2, _ := c.PanelByNumber(2)
	p2.Narration = "kept"
	p5, _ := c.PanelByNumber(5)
	p5.Prompt = "untouched"

	if err := ApplyToComic(ps, &c); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if c.Title != "The Fox and the City" || c.Metadata.Author != "Mika" {
		t.Fatalf("header not applied: %q %q", c.Title, c.Metadata.Author)
	}
	got1, _ := c.PanelByNumber(1)
	if got1.Narration != "Night fell over the city." {
		t.Fatalf("panel 1 narration = %q", got1.Narration)
	}
	got2, _ := c.PanelByNumber(2)
	if got2.Narration != "kept" {
		t.Fatalf("panel 2 narration overwritten: %q", got2.Narration)
	}
	got5, _ := c.PanelByNumber(5)
	if got5.Prompt != "untouched" {
		t.Fatalf("panel 5 prompt = %q", got5.Prompt)
	}
}
