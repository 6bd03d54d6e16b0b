/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(panel int, small string, ts time.Time) Snapshot {
	return Snapshot{Panel: panel, Small: small, TS: ts}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap(1, "v1", t0))
	h.Push(snap(1, "v2", t0.Add(10*time.Millisecond)))

	s, ok := h.Undo(1, snap(1, "v3", time.Now()))
	if !ok || s.Small != "v2" {
		t.Fatalf("undo 1 = %v %q", ok, s.Small)
	}
	s, ok = h.Undo(1, snap(1, "v2", time.Now()))
	if !ok || s.Small != "v1" {
		t.Fatalf("undo 2 = %v %q", ok, s.Small)
	}
	if _, ok := h.Undo(1, snap(1, "v1", time.Now())); ok {
		t.Fatal("undo on empty stack should fail")
	}
	s, ok = h.Redo(1, snap(1, "v1", time.Now()))
	if !ok || s.Small != "v2" {
		t.Fatalf("redo = %v %q", ok, s.Small)
	}
	if !h.CanRedo(1) {
		t.Fatal("one redo entry should remain")
	}
}

func TestPushClearsRedo(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap(1, "v1", t0))
	if _, ok := h.Undo(1, snap(1, "v2", time.Now())); !ok {
		t.Fatal("undo failed")
	}
	if !h.CanRedo(1) {
		t.Fatal("expected redo entry")
	}
	h.Push(snap(1, "v3", t0.Add(10*time.Millisecond)))
	if h.CanRedo(1) {
		t.Fatal("push must clear redo stack")
	}
}

func TestCoalescingWithinInterval(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Second})
	t0 := time.Now()
	h.Push(snap(2, "a", t0))
	h.Push(snap(2, "b", t0.Add(100*time.Millisecond)))
	_, _, n := h.Stats()
	if n != 1 {
		t.Fatalf("coalesced stack should hold 1 snapshot, has %d", n)
	}
	s, ok := h.Undo(2, snap(2, "c", time.Now()))
	if !ok || s.Small != "b" {
		t.Fatalf("undo after coalesce = %v %q", ok, s.Small)
	}
}

func TestPerPanelDepthCap(t *testing.T) {
	h := NewHistory(Config{MaxPerPanel: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 5; i++ {
		h.Push(snap(1, string(rune('a'+i)), t0.Add(time.Duration(i)*10*time.Millisecond)))
	}
	_, _, n := h.Stats()
	if n != 2 {
		t.Fatalf("depth cap: %d snapshots", n)
	}
	s, _ := h.Undo(1, snap(1, "x", time.Now()))
	if s.Small != "e" {
		t.Fatalf("newest kept should be e, got %q", s.Small)
	}
}

func TestGlobalByteCapPrunesOldest(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 10, MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap(1, "aaaa", t0))
	h.Push(snap(2, "bbbb", t0.Add(10*time.Millisecond)))
	h.Push(snap(3, "cccc", t0.Add(20*time.Millisecond)))
	bytes, _, _ := h.Stats()
	if bytes > 10 {
		t.Fatalf("cap not enforced: %d bytes", bytes)
	}
	if h.CanUndo(1) {
		t.Fatal("oldest panel snapshot should have been pruned")
	}
	if !h.CanUndo(3) {
		t.Fatal("newest snapshot must survive pruning")
	}
}

func TestClearPanel(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	h.Push(snap(1, "aaa", t0))
	h.Push(snap(2, "bbb", t0))
	h.ClearPanel(1)
	if h.CanUndo(1) {
		t.Fatal("panel 1 should be empty")
	}
	if !h.CanUndo(2) {
		t.Fatal("panel 2 must be untouched")
	}
	bytes, panels, _ := h.Stats()
	if panels != 1 || bytes != 3 {
		t.Fatalf("stats after clear = %d bytes, %d panels", bytes, panels)
	}
}

func TestSnapshotSizeCountsBothSlots(t *testing.T) {
	h := NewHistory(Config{MinInterval: time.Millisecond})
	h.Push(Snapshot{Panel: 1, Small: "ab", Large: "cdef", TS: time.Now()})
	bytes, _, _ := h.Stats()
	if bytes != 6 {
		t.Fatalf("size = %d, want 6", bytes)
	}
}
