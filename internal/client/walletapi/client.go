// Package walletapi is the client for this service's own wallet
// endpoints. The tipper CLI uses it as the signer backend so remote
// signer kinds are provisioned and driven through the API rather than by
// talking to the custody providers directly.
package walletapi

import (
	"context"
	"fmt"

	client "github.com/tipcast/tipcast-api/internal/client/http"
	"github.com/tipcast/tipcast-api/internal/signer"
)

// Client implements signer.Backend over the wallet endpoints.
type Client struct {
	http *client.Client
}

// NewClient creates a wallet-API client against baseURL.
func NewClient(baseURL string, options ...client.ClientOption) *Client {
	opts := append([]client.ClientOption{client.WithBaseURL(baseURL)}, options...)
	return &Client{http: client.NewClient(opts...)}
}

var _ signer.Backend = (*Client)(nil)

type createRequest struct {
	SignerType signer.Kind `json:"signerType"`
}

type createResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// CreateWallet provisions a custodial wallet for kind.
func (c *Client) CreateWallet(ctx context.Context, kind signer.Kind) (string, string, error) {
	resp, err := c.http.Post(ctx, "/api/wallets", createRequest{SignerType: kind})
	if err != nil {
		return "", "", fmt.Errorf("wallet creation failed: %w", err)
	}

	var created createResponse
	if err := c.http.DecodeJSON(resp, &created); err != nil {
		return "", "", fmt.Errorf("failed to decode wallet response: %w", err)
	}
	if created.ID == "" || created.Address == "" {
		return "", "", fmt.Errorf("wallet endpoint returned no usable identity")
	}
	return created.ID, created.Address, nil
}

// Sign forwards a signing request to the signing endpoint.
func (c *Client) Sign(ctx context.Context, req signer.SignRequest) (*signer.SignResponse, error) {
	resp, err := c.http.Post(ctx, "/api/wallets/sign", req)
	if err != nil {
		return nil, fmt.Errorf("signing request failed: %w", err)
	}

	var signed signer.SignResponse
	if err := c.http.DecodeJSON(resp, &signed); err != nil {
		return nil, fmt.Errorf("failed to decode signing response: %w", err)
	}
	return &signed, nil
}
