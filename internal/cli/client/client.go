// Package client is the HTTP client the CLI uses to talk to a
// running abode server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-karan/abode/internal/core"
	"github.com/mr-karan/abode/internal/server"
)

// Client talks to the abode HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given server URL.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error calling server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

// Search runs a search against the server.
func (c *Client) Search(ctx context.Context, req core.SearchRequest) (*core.SearchResponse, error) {
	var resp core.SearchResponse
	if err := c.post(ctx, "/api/v1/search/"+req.Model, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Translate compiles a query on the server without executing it.
func (c *Client) Translate(ctx context.Context, req core.SearchRequest) (*server.TranslateResponse, error) {
	var resp server.TranslateResponse
	if err := c.post(ctx, "/api/v1/ql/translate", server.TranslateRequest{SearchRequest: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
