/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// memStore stubs the OS keyring for tests.
type memStore struct{ m map[string]string }

func (s *memStore) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memStore) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memStore) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func withTempHome(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)
	t.Setenv("USERPROFILE", dir)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Backend.BaseURL == "" || cfg.Generation.BaseURL == "" {
		t.Fatalf("defaults missing URLs: %+v", cfg)
	}
	if cfg.Voice.Speed != 1.0 {
		t.Fatalf("default voice speed: %v", cfg.Voice.Speed)
	}
	if cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry must be opt-in")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	withTempHome(t)
	old := tokenStore
	tokenStore = &memStore{m: map[string]string{}}
	defer func() { tokenStore = old }()

	cfg := Defaults()
	cfg.Backend.BaseURL = "https://api.example.com"
	cfg.Generation.BaseURL = "https://gen.example.com"
	cfg.Voice.VoiceID = "voice-1"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, tok, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Backend.BaseURL != "https://api.example.com" {
		t.Fatalf("backend url not persisted: %s", loaded.Backend.BaseURL)
	}
	if loaded.Generation.BaseURL != "https://gen.example.com" {
		t.Fatalf("generation url not persisted: %s", loaded.Generation.BaseURL)
	}
	if loaded.Voice.VoiceID != "voice-1" {
		t.Fatalf("voice id not persisted: %s", loaded.Voice.VoiceID)
	}
	if tok != "secret-token" {
		t.Fatalf("token not round-tripped: %q", tok)
	}

	// Token must not appear in the YAML file.
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) == "" || filepath.Ext(path) != ".yaml" {
		t.Fatalf("unexpected config file: %s", path)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Fatalf("token leaked into config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	withTempHome(t)
	old := tokenStore
	tokenStore = &memStore{m: map[string]string{}}
	defer func() { tokenStore = old }()

	t.Setenv(EnvBackendURL, "http://override:9000")
	t.Setenv(EnvGenerationURL, "http://gen-override:3004")
	t.Setenv(EnvBackendTimeoutMs, "2500")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:9000" {
		t.Fatalf("backend env override ignored: %s", cfg.Backend.BaseURL)
	}
	if cfg.Generation.BaseURL != "http://gen-override:3004" {
		t.Fatalf("generation env override ignored: %s", cfg.Generation.BaseURL)
	}
	if cfg.Backend.TimeoutMs != 2500 {
		t.Fatalf("timeout env override ignored: %d", cfg.Backend.TimeoutMs)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry env override ignored")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level env override ignored: %s", cfg.Logging.Level)
	}

	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor backend.base_url: %v %v", env, ok)
	}
	if _, ok := EnvOverrideFor("voice.voice_id"); ok {
		t.Fatalf("voice.voice_id should not be overridden")
	}
}
