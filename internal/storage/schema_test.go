/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"testing"

	"pixelpanel/internal/comic"
)

func TestValidateManifestAcceptsWellFormed(t *testing.T) {
	c := comic.New("ok")
	c.Panels[0].Prompt = "hello"
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateManifest(b); err != nil {
		t.Fatalf("valid manifest rejected: %v", err)
	}
}

func TestValidateManifestRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", `{truncated`},
		{"missing title", `{"panels":[{"number":1},{"number":2},{"number":3},{"number":4},{"number":5},{"number":6}],"is_public":false}`},
		{"too few panels", `{"title":"x","panels":[{"number":1}],"is_public":false}`},
		{"panel number out of range", `{"title":"x","panels":[{"number":0},{"number":2},{"number":3},{"number":4},{"number":5},{"number":6}],"is_public":false}`},
		{"unknown field", `{"title":"x","panels":[{"number":1},{"number":2},{"number":3},{"number":4},{"number":5},{"number":6}],"is_public":false,"bogus":1}`},
		{"wrong type", `{"title":42,"panels":[{"number":1},{"number":2},{"number":3},{"number":4},{"number":5},{"number":6}],"is_public":false}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateManifest([]byte(tc.doc)); err == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}
