package custody

import (
	"context"
	"fmt"
	"net/http"

	client "github.com/tipcast/tipcast-api/internal/client/http"
)

const privyBaseURL = "https://api.privy.io"

// PrivyClient drives the Privy wallet API. Authentication is basic auth
// with the app id and secret plus the app-id header.
type PrivyClient struct {
	http      *client.Client
	appID     string
	basicAuth client.RequestOption
}

// NewPrivyClient creates a Privy custody client.
func NewPrivyClient(appID, appSecret string, options ...client.ClientOption) *PrivyClient {
	opts := append([]client.ClientOption{
		client.WithBaseURL(privyBaseURL),
		client.WithDefaultHeader("privy-app-id", appID),
	}, options...)
	c := &PrivyClient{http: client.NewClient(opts...), appID: appID}
	c.basicAuth = func(req *http.Request) {
		req.SetBasicAuth(appID, appSecret)
	}
	return c
}

var _ Provider = (*PrivyClient)(nil)

type privyCreateRequest struct {
	ChainType string `json:"chain_type"`
}

type privyRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Message  string `json:"message"`
		Encoding string `json:"encoding"`
	} `json:"params"`
}

type privyRPCResponse struct {
	Method string `json:"method"`
	Data   struct {
		Signature string `json:"signature"`
		Encoding  string `json:"encoding"`
	} `json:"data"`
}

// CreateWallet provisions a new Privy-managed ethereum wallet.
func (p *PrivyClient) CreateWallet(ctx context.Context) (*Wallet, error) {
	resp, err := p.http.Post(ctx, "/v1/wallets", privyCreateRequest{ChainType: "ethereum"}, p.basicAuth)
	if err != nil {
		return nil, fmt.Errorf("privy wallet creation failed: %w", err)
	}

	var wallet Wallet
	if err := p.http.DecodeJSON(resp, &wallet); err != nil {
		return nil, fmt.Errorf("failed to decode privy wallet: %w", err)
	}
	if wallet.ID == "" || wallet.Address == "" {
		return nil, fmt.Errorf("privy returned no usable wallet identity")
	}
	return &wallet, nil
}

// SignMessage signs message with the wallet identified by id.
func (p *PrivyClient) SignMessage(ctx context.Context, id, _, message string) (*SignResult, error) {
	req := privyRPCRequest{Method: "personal_sign"}
	req.Params.Message = message
	req.Params.Encoding = "hex"

	resp, err := p.http.Post(ctx, "/v1/wallets/"+id+"/rpc", req, p.basicAuth)
	if err != nil {
		return nil, fmt.Errorf("privy signing failed: %w", err)
	}

	var rpcResp privyRPCResponse
	if err := p.http.DecodeJSON(resp, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode privy signature: %w", err)
	}
	if rpcResp.Data.Signature == "" {
		return nil, fmt.Errorf("privy returned no signature")
	}
	return &SignResult{
		Signature: rpcResp.Data.Signature,
		Encoding:  rpcResp.Data.Encoding,
	}, nil
}
