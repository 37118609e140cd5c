// Package push delivers notification messages to the local message
// pusher service, which forwards them to connected chat clients.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter carries the small footer line of an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed is a rich message card in the pusher's wire format.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// Message is the payload delivered to one user.
type Message struct {
	Content string `json:"content,omitempty"`
	Embed   *Embed `json:"embed,omitempty"`
}

// Client posts messages to the pusher endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New builds a Client against the given pusher endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one message to one user. Non-2xx responses are errors.
func (c *Client) Send(ctx context.Context, userID string, msg Message) error {
	payload, err := json.Marshal(map[string]any{
		"user_id": userID,
		"message": msg,
	})
	if err != nil {
		return fmt.Errorf("push: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push: send to %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push: pusher returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
