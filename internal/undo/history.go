/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps in-memory undo/redo stacks of panel artwork so a bad
// stroke or an unwanted generation can be rolled back.
package undo

import (
	"sync"
	"time"
)

// Snapshot is the committed state of one panel before an edit: both encoded
// bitmap slots (base64 PNG, opaque to the manager). Size accounting uses the
// combined slot lengths.
type Snapshot struct {
	Panel int
	Small string
	Large string
	TS    time.Time
}

func (s Snapshot) size() int { return len(s.Small) + len(s.Large) }

// Config caps memory and depth and controls coalescing.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxPerPanel limits snapshots per panel (0 means unlimited).
	MaxPerPanel int
	// MinInterval coalesces snapshots captured within the interval for the
	// same panel, replacing the previous one instead of pushing a new entry.
	// Rapid strokes then undo as one edit.
	MinInterval time.Duration
}

// History holds per-panel undo/redo stacks. Safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex

	undo map[int][]Snapshot
	redo map[int][]Snapshot

	totalBytes int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// Push records a panel's state prior to an edit. A push within MinInterval
// of the previous one for the same panel replaces it. Any push clears the
// panel's redo stack.
func (h *History) Push(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[s.Panel]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < h.cfg.MinInterval {
			h.totalBytes += s.size() - last.size()
			stack[n-1] = s
			h.undo[s.Panel] = stack
			h.redo[s.Panel] = nil
			h.enforceCapsLocked(s.Panel)
			return
		}
	}
	h.undo[s.Panel] = append(stack, s)
	h.totalBytes += s.size()
	h.redo[s.Panel] = nil
	h.enforceCapsLocked(s.Panel)
}

// Undo pops the panel's newest snapshot. current is the panel's present
// state and goes on the redo stack so the undo itself can be reverted.
func (h *History) Undo(panel int, current Snapshot) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[panel]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	h.undo[panel] = stack[:len(stack)-1]
	h.totalBytes -= s.size()
	current.Panel = panel
	current.TS = time.Now()
	h.redo[panel] = append(h.redo[panel], current)
	return s, true
}

// Redo pops the panel's newest redo entry; current goes back on the undo
// stack.
func (h *History) Redo(panel int, current Snapshot) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.redo[panel]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	h.redo[panel] = r[:len(r)-1]
	current.Panel = panel
	current.TS = time.Now()
	h.undo[panel] = append(h.undo[panel], current)
	h.totalBytes += current.size()
	h.enforceCapsLocked(panel)
	return s, true
}

// CanUndo reports whether the panel has anything to roll back.
func (h *History) CanUndo(panel int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[panel]) > 0
}

// CanRedo reports whether the panel has anything to replay.
func (h *History) CanRedo(panel int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo[panel]) > 0
}

// ClearPanel drops both stacks for a panel to free memory.
func (h *History) ClearPanel(panel int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.undo[panel] {
		h.totalBytes -= s.size()
	}
	delete(h.undo, panel)
	delete(h.redo, panel)
	if h.totalBytes < 0 {
		h.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, panels int, totalSnapshots int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	panels = len(h.undo)
	for _, v := range h.undo {
		totalSnapshots += len(v)
	}
	return h.totalBytes, panels, totalSnapshots
}

func (h *History) enforceCapsLocked(panel int) {
	if h.cfg.MaxPerPanel > 0 {
		stack := h.undo[panel]
		if len(stack) > h.cfg.MaxPerPanel {
			toDrop := len(stack) - h.cfg.MaxPerPanel
			for i := 0; i < toDrop; i++ {
				h.totalBytes -= stack[i].size()
			}
			h.undo[panel] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global cap: prune the oldest snapshot across all panels.
	for h.cfg.MaxBytes > 0 && h.totalBytes > h.cfg.MaxBytes {
		oldestPanel := 0
		oldestIdx := -1
		var oldestTS time.Time
		for p, stack := range h.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestPanel = p
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := h.undo[oldestPanel]
		h.totalBytes -= stack[0].size()
		h.undo[oldestPanel] = stack[1:]
		if len(h.undo[oldestPanel]) == 0 {
			delete(h.undo, oldestPanel)
		}
	}
}
