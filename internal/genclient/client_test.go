/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package genclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateSuccess(t *testing.T) {
	artwork := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["text_prompt"] != "a red robot" {
			t.Errorf("text_prompt = %q", req["text_prompt"])
		}
		ref, err := base64.StdEncoding.DecodeString(req["reference_image"])
		if err != nil || string(ref) != "sketch" {
			t.Errorf("reference_image did not round-trip: %v", err)
		}
		if strings.HasPrefix(req["reference_image"], "data:") {
			t.Error("reference_image carried a data-URI prefix")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"image_data": base64.StdEncoding.EncodeToString(artwork),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	got, err := c.Generate(context.Background(), "a red robot", []byte("sketch"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(got) != string(artwork) {
		t.Fatalf("image bytes = %v, want %v", got, artwork)
	}
}

func TestGenerateBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "content filtered"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "x", nil)
	var fe *FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FailureError", err)
	}
	if !strings.Contains(fe.Message, "content filtered") {
		t.Fatalf("failure message = %q", fe.Message)
	}
}

func TestGenerateHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "x", nil)
	var fe *FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FailureError", err)
	}
}

func TestGenerateUndecodableImageIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "image_data": "%%%not-base64%%%"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "x", nil)
	var fe *FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FailureError", err)
	}
}

func TestGenerateTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.Generate(context.Background(), "x", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var fe *FailureError
	if errors.As(err, &fe) {
		t.Fatal("transport error misclassified as service failure")
	}
}

func TestGenerateHonorsContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := NewClient(srv.URL, time.Minute)
	go func() {
		_, err := c.Generate(ctx, "x", nil)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("cancelled request returned no error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestGenerateCoverPrompt(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		prompt = req["text_prompt"]
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"image_data": base64.StdEncoding.EncodeToString([]byte("img")),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.GenerateCover(context.Background(), "Space Cats", []string{"launch", "", "landing"}); err != nil {
		t.Fatalf("GenerateCover: %v", err)
	}
	for _, want := range []string{"Space Cats", "launch", "landing", "3:4"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("cover prompt %q missing %q", prompt, want)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	if err := NewClient(bad.URL, 5*time.Second).Health(context.Background()); err == nil {
		t.Fatal("unhealthy service reported healthy")
	}
}
