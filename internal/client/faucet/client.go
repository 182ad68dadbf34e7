package faucet

import (
	"context"
	"encoding/json"
	"fmt"

	client "github.com/tipcast/tipcast-api/internal/client/http"
)

// Client forwards dispense requests to the upstream faucet dispenser.
type Client struct {
	http *client.Client
}

// NewClient creates a faucet client against the dispenser base URL.
func NewClient(baseURL string, options ...client.ClientOption) *Client {
	opts := append([]client.ClientOption{client.WithBaseURL(baseURL)}, options...)
	return &Client{http: client.NewClient(opts...)}
}

type dispenseRequest struct {
	To string `json:"to"`
}

// Dispense asks the upstream dispenser to fund address and returns the
// dispenser's transaction reference.
func (c *Client) Dispense(ctx context.Context, address string) (json.RawMessage, error) {
	resp, err := c.http.Post(ctx, "/"+address, dispenseRequest{To: address})
	if err != nil {
		return nil, fmt.Errorf("failed to disperse faucet: %w", err)
	}

	var hash json.RawMessage
	if err := c.http.DecodeJSON(resp, &hash); err != nil {
		return nil, fmt.Errorf("failed to decode faucet response: %w", err)
	}
	return hash, nil
}
