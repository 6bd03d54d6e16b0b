/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/storage"
)

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	root := filepath.Join(t.TempDir(), "c")
	c := comic.New("Crash Dummy")
	ch, err := storage.InitComic(root, c)
	if err != nil {
		t.Fatalf("InitComic: %v", err)
	}
	ch.Comic.Panels[0].Narration = "unsaved when it broke"

	exitCode := -1
	old := exitFn
	exitFn = func(code int) { exitCode = code }
	defer func() { exitFn = old }()

	func() {
		defer Recover(ch)
		panic("boom")
	}()

	if exitCode != 2 {
		t.Errorf("exit code = %d", exitCode)
	}

	// Report lands next to the backups.
	ents, err := os.ReadDir(filepath.Join(root, storage.BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	var report string
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			report = filepath.Join(root, storage.BackupsDirName, e.Name())
		}
	}
	if report == "" {
		t.Fatal("no crash report written")
	}
	body, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "Panic: boom") {
		t.Errorf("report missing panic value:\n%s", body)
	}
	if !strings.Contains(string(body), "Stack:") {
		t.Error("report missing stack trace")
	}

	// The unsaved work survives in the autosave.
	got, err := storage.ReadAutosave(root)
	if err != nil {
		t.Fatalf("ReadAutosave: %v", err)
	}
	if got == nil || got.Panels[0].Narration != "unsaved when it broke" {
		t.Errorf("autosave = %+v", got)
	}
}

func TestRecoverWithoutComic(t *testing.T) {
	exitCode := -1
	old := exitFn
	exitFn = func(code int) { exitCode = code }
	defer func() { exitFn = old }()

	func() {
		defer Recover(nil)
		panic("no comic open")
	}()

	if exitCode != 2 {
		t.Errorf("exit code = %d", exitCode)
	}
}

func TestRecoverNoopWithoutPanic(t *testing.T) {
	old := exitFn
	called := false
	exitFn = func(int) { called = true }
	defer func() { exitFn = old }()

	func() {
		defer Recover(nil)
	}()

	if called {
		t.Error("Recover exited without a panic")
	}
}
