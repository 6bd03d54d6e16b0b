/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package genclient talks to the image-generation service. A request carries
// the panel prompt and the user's sketch as a reference image; the service
// answers with finished artwork. Images travel as base64 PNG strings without
// any data-URI prefix.
package genclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	applog "pixelpanel/internal/log"
)

// FailureError is returned when the service answers but reports failure.
// An undecodable image payload counts as a service failure too; the caller
// cannot tell them apart and should not.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return "generation failed"
	}
	return "generation failed: " + e.Message
}

// Client is an HTTP client for the generation service.
type Client struct {
	BaseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a generation client. baseURL may include a trailing
// slash; it will be normalized. A zero timeout falls back to 120s: image
// generation is slow.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("genclient"),
	}
}

type generateRequest struct {
	TextPrompt     string `json:"text_prompt"`
	ReferenceImage string `json:"reference_image,omitempty"`
}

type generateResponse struct {
	Success   bool   `json:"success"`
	ImageData string `json:"image_data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (c *Client) postGenerate(ctx context.Context, req generateRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	dec := json.NewDecoder(resp.Body)
	if derr := dec.Decode(&out); derr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &FailureError{Message: resp.Status}
		}
		return nil, &FailureError{Message: "unreadable response"}
	}
	if !out.Success || (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, &FailureError{Message: msg}
	}
	img, err := base64.StdEncoding.DecodeString(out.ImageData)
	if err != nil || len(img) == 0 {
		return nil, &FailureError{Message: "undecodable image payload"}
	}
	c.log.Debug("generation ok", slog.Duration("took", time.Since(start)), slog.Int("bytes", len(img)))
	return img, nil
}

// Generate submits a prompt plus a reference sketch and returns the finished
// artwork as PNG bytes. The caller validates prompt and sketch before calling;
// everything that goes wrong past that point is a transport or service error.
func (c *Client) Generate(ctx context.Context, prompt string, referencePNG []byte) ([]byte, error) {
	req := generateRequest{TextPrompt: prompt}
	if len(referencePNG) > 0 {
		req.ReferenceImage = base64.StdEncoding.EncodeToString(referencePNG)
	}
	return c.postGenerate(ctx, req)
}

// GenerateCover asks the service for a 3:4 comic cover from the comic title
// and the panel prompts. The result is raw PNG bytes; callers fit it to the
// 600x800 thumbnail frame.
func (c *Client) GenerateCover(ctx context.Context, title string, prompts []string) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("Comic book cover, portrait 3:4, bold title text \"")
	sb.WriteString(title)
	sb.WriteString("\".")
	for _, p := range prompts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sb.WriteString(" Scene: ")
		sb.WriteString(p)
		sb.WriteString(".")
	}
	return c.postGenerate(ctx, generateRequest{TextPrompt: sb.String()})
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("generation service unhealthy: %s", resp.Status)
	}
	return nil
}
