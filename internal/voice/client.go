/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyNarration is returned before any request when there is no text to
// synthesize.
var ErrEmptyNarration = errors.New("narration text is empty")

// ErrInsufficientCredits maps the server's payment-required response.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Client calls the sync server's voice-over endpoints with a bearer token.
type Client struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewClient creates a voice client. baseURL may include a trailing slash; it
// will be normalized.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientCredits
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server POST %s: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GenerateStory asks the server to write a short narration for the comic
// from the panel prompts the user drew with.
func (c *Client) GenerateStory(ctx context.Context, prompts []string) (string, error) {
	joined := strings.TrimSpace(strings.Join(prompts, ". "))
	if joined == "" {
		return "", ErrEmptyNarration
	}
	var out struct {
		Story string `json:"story"`
		Error string `json:"error,omitempty"`
	}
	if err := c.postJSON(ctx, "/api/voice-over/generate-story", map[string]string{"story": joined}, &out); err != nil {
		return "", err
	}
	if out.Story == "" {
		return "", fmt.Errorf("server returned no story: %s", out.Error)
	}
	return out.Story, nil
}

// GenerateVoiceover synthesizes narration text into MP3 audio, returned as a
// base64 string ready for the panel's audio slot. voiceID may be empty to use
// the server default.
func (c *Client) GenerateVoiceover(ctx context.Context, narration, voiceID string, speed float64) (string, error) {
	if strings.TrimSpace(narration) == "" {
		return "", ErrEmptyNarration
	}
	if err := ValidateSpeed(speed); err != nil {
		return "", err
	}
	in := map[string]any{"narration": narration, "speed": speed}
	if voiceID != "" {
		in["voice_id"] = voiceID
	}
	var out struct {
		Audio string `json:"audio"`
	}
	if err := c.postJSON(ctx, "/api/voice-over/generate-voiceover", in, &out); err != nil {
		return "", err
	}
	if out.Audio == "" {
		return "", errors.New("server returned no audio")
	}
	return out.Audio, nil
}
