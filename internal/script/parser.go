/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pixelpanel/internal/comic"
)

// Parse parses a panel script.
// Supported syntax:
//   - Header lines: "Title: ..." and "Author: ..." before the first panel.
//   - Panel headings: "Panel N: prompt text" with N in 1..6. The prompt may
//     continue on lines indented by 2+ spaces.
//   - "NARRATION: text" (or "CAPTION: text") attaches to the current panel,
//     continuations indented likewise.
//   - Tags like @noir anywhere in a prompt are collected per panel.
//   - Lines starting with ';' are author notes and ignored.
//
// Parsing is lenient: problems are collected as Errors and the rest of the
// file is still read.
func Parse(input string) (PanelScript, []Error) {
	var ps PanelScript
	var errs []Error

	rePanel := regexp.MustCompile(`^(?i)Panel\s+(\d+)\s*:\s*(.*)$`)
	reHeader := regexp.MustCompile(`^(?i)(Title|Author)\s*:\s*(.+)$`)
	reCaption := regexp.MustCompile(`^(?i)(NARRATION|CAPTION)\s*:\s*(.*)$`)
	reTag := regexp.MustCompile(`(?i)@([a-z0-9_\-]+)`)

	seen := map[int]int{} // panel number -> heading line
	var cur *PanelScene
	// inNarration tracks whether indented continuations extend the
	// narration or the prompt of the current panel.
	inNarration := false

	appendText := func(dst *string, more string) {
		if *dst == "" {
			*dst = more
		} else {
			*dst += "\n" + more
		}
	}
	collectTags := func(p *PanelScene, text string) {
		for _, m := range reTag.FindAllStringSubmatch(text, -1) {
			t := strings.ToLower(strings.TrimSpace(m[1]))
			dup := false
			for _, have := range p.Tags {
				if have == t {
					dup = true
					break
				}
			}
			if !dup && t != "" {
				p.Tags = append(p.Tags, t)
			}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		// Continuation line, indented under a panel heading or caption.
		if strings.HasPrefix(line, "  ") && cur != nil {
			cont := strings.TrimSpace(line)
			if cont == "" {
				continue
			}
			if m := reCaption.FindStringSubmatch(cont); m != nil {
				inNarration = true
				appendText(&cur.Narration, strings.TrimSpace(m[2]))
				continue
			}
			if inNarration {
				appendText(&cur.Narration, cont)
			} else {
				appendText(&cur.Prompt, cont)
				collectTags(cur, cont)
			}
			continue
		}

		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, ";") {
			continue
		}

		if m := rePanel.FindStringSubmatch(trim); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n < 1 || n > comic.BoardPanels {
				errs = append(errs, Error{Line: lineNo, Message: fmt.Sprintf("panel number %d out of range 1..%d", n, comic.BoardPanels)})
				cur = nil
				continue
			}
			if prev, dup := seen[n]; dup {
				errs = append(errs, Error{Line: lineNo, Message: fmt.Sprintf("panel %d already defined on line %d", n, prev)})
				cur = nil
				continue
			}
			seen[n] = lineNo
			prompt := strings.TrimSpace(m[2])
			ps.Panels = append(ps.Panels, PanelScene{Number: n, Prompt: prompt, LineNo: lineNo})
			cur = &ps.Panels[len(ps.Panels)-1]
			collectTags(cur, prompt)
			inNarration = false
			continue
		}

		if m := reCaption.FindStringSubmatch(trim); m != nil {
			if cur == nil {
				errs = append(errs, Error{Line: lineNo, Message: "narration before any panel heading"})
				continue
			}
			inNarration = true
			appendText(&cur.Narration, strings.TrimSpace(m[2]))
			continue
		}

		if m := reHeader.FindStringSubmatch(trim); m != nil && cur == nil && len(ps.Panels) == 0 {
			switch strings.ToLower(m[1]) {
			case "title":
				ps.Title = strings.TrimSpace(m[2])
			case "author":
				ps.Author = strings.TrimSpace(m[2])
			}
			continue
		}

		errs = append(errs, Error{Line: lineNo, Message: "unrecognized line: " + trim})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}
	return ps, errs
}

// ApplyToComic writes the parsed script into a comic. Panels the script
// does not mention keep their existing text; artwork is never touched.
func ApplyToComic(ps PanelScript, c *comic.Comic) error {
	for _, sc := range ps.Panels {
		p, err := c.PanelByNumber(sc.Number)
		if err != nil {
			return err
		}
		p.Prompt = sc.Prompt
		if sc.Narration != "" {
			p.Narration = sc.Narration
		}
	}
	if ps.Title != "" {
		c.Title = ps.Title
	}
	if ps.Author != "" {
		c.Metadata.Author = ps.Author
	}
	return nil
}
