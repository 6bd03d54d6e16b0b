/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"pixelpanel/internal/comic"
)

func openTestIndex(t *testing.T, lib string) *Index {
	t.Helper()
	idx, err := InitOrOpenIndex(lib)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexSearch(t *testing.T) {
	lib := t.TempDir()
	idx := openTestIndex(t, lib)

	fox := comic.New("Fox Tales")
	fox.Panels[0].Prompt = "a fox by the river"
	fox.Panels[0].Narration = "The fox waited for dusk."
	owl := comic.New("Night Owls")
	owl.Panels[1].Prompt = "an owl over the city"

	if err := idx.UpsertComic(filepath.Join(lib, "fox"), &fox); err != nil {
		t.Fatalf("upsert fox: %v", err)
	}
	if err := idx.UpsertComic(filepath.Join(lib, "owl"), &owl); err != nil {
		t.Fatalf("upsert owl: %v", err)
	}

	cases := []struct {
		query string
		want  string
	}{
		{"fox", "Fox Tales"},       // prompt and narration
		{"owls", "Night Owls"},     // title
		{"dusk", "Fox Tales"},      // narration only
		{"cit", "Night Owls"},      // prefix on last term
		{"over the cit", "Night Owls"},
	}
	for _, tc := range cases {
		hits, err := idx.Search(tc.query)
		if err != nil {
			t.Fatalf("Search(%q): %v", tc.query, err)
		}
		if len(hits) != 1 || hits[0].Title != tc.want {
			t.Errorf("Search(%q) = %+v, want single hit %q", tc.query, hits, tc.want)
		}
	}

	all, err := idx.Search("")
	if err != nil {
		t.Fatalf("Search all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("empty query lists %d comics, want 2", len(all))
	}

	if hits, _ := idx.Search("submarine"); len(hits) != 0 {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestIndexUpsertReplacesText(t *testing.T) {
	lib := t.TempDir()
	idx := openTestIndex(t, lib)
	root := filepath.Join(lib, "c")

	c := comic.New("Draft")
	c.Panels[0].Prompt = "dragons"
	if err := idx.UpsertComic(root, &c); err != nil {
		t.Fatal(err)
	}
	c.Title = "Final"
	c.Panels[0].Prompt = "wizards"
	if err := idx.UpsertComic(root, &c); err != nil {
		t.Fatal(err)
	}
	if hits, _ := idx.Search("dragons"); len(hits) != 0 {
		t.Errorf("stale text still indexed: %+v", hits)
	}
	hits, err := idx.Search("wizards")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "Final" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestIndexRemoveComic(t *testing.T) {
	lib := t.TempDir()
	idx := openTestIndex(t, lib)
	root := filepath.Join(lib, "c")
	c := comic.New("Gone Soon")
	if err := idx.UpsertComic(root, &c); err != nil {
		t.Fatal(err)
	}
	if err := idx.RemoveComic(root); err != nil {
		t.Fatal(err)
	}
	if hits, _ := idx.Search("gone"); len(hits) != 0 {
		t.Errorf("removed comic still indexed: %+v", hits)
	}
}

func TestRebuildFromLibrary(t *testing.T) {
	lib := t.TempDir()
	c1 := sampleComic(t)
	if _, err := InitComic(filepath.Join(lib, "evening"), c1); err != nil {
		t.Fatal(err)
	}
	c2 := comic.New("Morning Run")
	c2.Panels[0].Prompt = "sunrise jog"
	if _, err := InitComic(filepath.Join(lib, "morning"), c2); err != nil {
		t.Fatal(err)
	}
	// Non-comic clutter must be skipped.
	if err := os.MkdirAll(filepath.Join(lib, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	idx := openTestIndex(t, lib)
	if err := idx.RebuildFromLibrary(lib); err != nil {
		t.Fatalf("RebuildFromLibrary: %v", err)
	}
	all, err := idx.Search("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("indexed %d comics, want 2: %+v", len(all), all)
	}
	hits, err := idx.Search("sunrise")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "Morning Run" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestCheckAndRebuildOnCorruption(t *testing.T) {
	lib := t.TempDir()
	if _, err := InitComic(filepath.Join(lib, "evening"), sampleComic(t)); err != nil {
		t.Fatal(err)
	}
	// Plant a garbage index file.
	path := IndexPath(lib)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("this is not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, rebuilt, err := CheckAndRebuild(lib)
	if err != nil {
		t.Fatalf("CheckAndRebuild: %v", err)
	}
	defer idx.Close()
	if !rebuilt {
		t.Error("expected a rebuild")
	}
	hits, err := idx.Search("quiet")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("hits after rebuild = %+v", hits)
	}
}
