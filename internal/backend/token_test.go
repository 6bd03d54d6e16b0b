/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := signToken("secret", "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	sub, err := verifyToken("secret", tok)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("subject = %q, want user-1", sub)
	}
}

func TestTokenRejections(t *testing.T) {
	tok, err := signToken("secret", "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifyToken("other-secret", tok); err == nil {
		t.Fatal("token verified with wrong secret")
	}
	if _, err := verifyToken("secret", "no-dot-token"); err == nil {
		t.Fatal("malformed token verified")
	}
	// Tampered payload keeps the old signature.
	parts := strings.SplitN(tok, ".", 2)
	if _, err := verifyToken("secret", parts[0]+"x."+parts[1]); err == nil {
		t.Fatal("tampered token verified")
	}
	expired, err := signToken("secret", "user-1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifyToken("secret", expired); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestWithAuth(t *testing.T) {
	var gotSub string
	h := withAuth("secret", func(w http.ResponseWriter, r *http.Request, sub string) {
		gotSub = sub
		w.WriteHeader(http.StatusOK)
	})

	// No token.
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}

	// Valid token.
	tok, err := signToken("secret", "alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if gotSub != "alice" {
		t.Fatalf("subject = %q", gotSub)
	}
}

func TestValidatePublish(t *testing.T) {
	full := []panelMeta{
		{Number: 0},
		{Number: 1, Narration: "one"},
		{Number: 2, Narration: "two"},
	}
	if err := validatePublish("My Comic", full); err != nil {
		t.Fatalf("complete comic rejected: %v", err)
	}
	if err := validatePublish("  ", full); err == nil {
		t.Fatal("blank title accepted")
	}
	noThumb := []panelMeta{{Number: 1, Narration: "one"}}
	if err := validatePublish("T", noThumb); err == nil {
		t.Fatal("missing thumbnail accepted")
	}
	noNarration := []panelMeta{{Number: 0}, {Number: 1}}
	if err := validatePublish("T", noNarration); err == nil {
		t.Fatal("missing narration accepted")
	}
}

func TestStoryFallback(t *testing.T) {
	got := storyFallback("a knight. a dragon")
	if !strings.Contains(got, "a knight. a dragon") {
		t.Fatalf("story = %q", got)
	}
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("0002_credits.sql")
	if err != nil {
		t.Fatalf("parseMigrationVersion: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	if _, err := parseMigrationVersion("credits.sql"); err == nil {
		t.Fatal("unversioned filename accepted")
	}
}
