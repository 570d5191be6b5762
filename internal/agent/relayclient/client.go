// Package relayclient is the agent's HTTP client for the relay server.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Subscribe registers (or refreshes) sub with the relay.
func (c *Client) Subscribe(ctx context.Context, sub *subscription.Subscription) error {
	body, err := json.Marshal(map[string]any{
		"endpoint": sub.Endpoint,
		"keys":     sub.Keys,
	})
	if err != nil {
		return fmt.Errorf("client.Subscribe: %w", err)
	}
	return c.post(ctx, "/api/subscribe", body)
}

// Unsubscribe removes the registration for endpoint.
func (c *Client) Unsubscribe(ctx context.Context, endpoint string) error {
	body, err := json.Marshal(map[string]any{"endpoint": endpoint})
	if err != nil {
		return fmt.Errorf("client.Unsubscribe: %w", err)
	}
	return c.post(ctx, "/api/unsubscribe", body)
}

// VAPIDPublicKey fetches the server's public key for subscribing.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vapid-public-key", nil)
	if err != nil {
		return "", fmt.Errorf("client.VAPIDPublicKey: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("client.VAPIDPublicKey: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("client.VAPIDPublicKey: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("client.VAPIDPublicKey: %w", err)
	}
	return out.PublicKey, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
