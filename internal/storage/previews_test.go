/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func openPreviewIndex(t *testing.T) *Index {
	t.Helper()
	idx := openTestIndex(t, t.TempDir())
	if err := idx.EnsurePreviewsMigrated(); err != nil {
		t.Fatalf("EnsurePreviewsMigrated: %v", err)
	}
	return idx
}

func TestPreviewPutGet(t *testing.T) {
	idx := openPreviewIndex(t)
	data := []byte("png-bytes-panel-1")
	if err := idx.PutPreview("/lib/fox", 1, data); err != nil {
		t.Fatalf("PutPreview: %v", err)
	}
	got, err := idx.GetPreview("/lib/fox", 1)
	if err != nil {
		t.Fatalf("GetPreview: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("preview bytes = %q", got)
	}
	// Miss returns nil, nil.
	got, err = idx.GetPreview("/lib/fox", 2)
	if err != nil || got != nil {
		t.Errorf("miss = (%v, %v)", got, err)
	}
}

func TestPreviewReplace(t *testing.T) {
	idx := openPreviewIndex(t)
	if err := idx.PutPreview("/lib/fox", 1, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := idx.PutPreview("/lib/fox", 1, []byte("newer")); err != nil {
		t.Fatal(err)
	}
	got, err := idx.GetPreview("/lib/fox", 1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "newer" {
		t.Errorf("preview = %q", got)
	}
}

func TestPreviewEvictionLRU(t *testing.T) {
	idx := openPreviewIndex(t)
	payload := bytes.Repeat([]byte("x"), 100)
	for n := 1; n <= 6; n++ {
		if err := idx.PutPreview("/lib/fox", n, payload); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond) // distinct access times
	}
	// Touch panel 1 so panel 2 becomes the oldest entry.
	if _, err := idx.GetPreview("/lib/fox", 1); err != nil {
		t.Fatal(err)
	}
	// Budget for four entries: the two least recently used go.
	if err := idx.EvictPreviewsToFit(400); err != nil {
		t.Fatalf("EvictPreviewsToFit: %v", err)
	}
	for n := 2; n <= 3; n++ {
		if got, _ := idx.GetPreview("/lib/fox", n); got != nil {
			t.Errorf("panel %d preview survived eviction", n)
		}
	}
	for _, n := range []int{1, 4, 5, 6} {
		if got, _ := idx.GetPreview("/lib/fox", n); got == nil {
			t.Errorf("panel %d preview evicted unexpectedly", n)
		}
	}
}

func TestPreviewDeleteByComic(t *testing.T) {
	idx := openPreviewIndex(t)
	for n := 1; n <= 3; n++ {
		if err := idx.PutPreview("/lib/fox", n, []byte(fmt.Sprintf("p%d", n))); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.PutPreview("/lib/owl", 1, []byte("keep")); err != nil {
		t.Fatal(err)
	}
	if err := idx.DeletePreviews("/lib/fox"); err != nil {
		t.Fatal(err)
	}
	if got, _ := idx.GetPreview("/lib/fox", 1); got != nil {
		t.Error("fox previews not deleted")
	}
	if got, _ := idx.GetPreview("/lib/owl", 1); got == nil {
		t.Error("owl preview deleted")
	}
}

func TestMaxPreviewsBytesFromEnv(t *testing.T) {
	t.Setenv("PXP_PREVIEWS_MAX_BYTES", "")
	if got := MaxPreviewsBytesFromEnv(); got != DefaultMaxPreviewsBytes {
		t.Errorf("default = %d", got)
	}
	t.Setenv("PXP_PREVIEWS_MAX_BYTES", "1024")
	if got := MaxPreviewsBytesFromEnv(); got != 1024 {
		t.Errorf("override = %d", got)
	}
	t.Setenv("PXP_PREVIEWS_MAX_BYTES", "garbage")
	if got := MaxPreviewsBytesFromEnv(); got != DefaultMaxPreviewsBytes {
		t.Errorf("garbage fallback = %d", got)
	}
	t.Setenv("PXP_PREVIEWS_MAX_BYTES", "-5")
	if got := MaxPreviewsBytesFromEnv(); got != DefaultMaxPreviewsBytes {
		t.Errorf("negative fallback = %d", got)
	}
}
