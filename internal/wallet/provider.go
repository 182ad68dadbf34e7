package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tipcast/tipcast-api/internal/logger"
	"go.uber.org/zap"
)

// Provider is the connection to the smart-contract wallet. It speaks the
// wallet provider protocol: address enumeration, wallet_connect with
// capabilities, network switch, typed-data signing and atomic multi-call
// submission.
type Provider interface {
	// Request performs one provider call, decoding the response into result
	// (which may be nil when the response is irrelevant).
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error

	// Disconnect tears the connection down. Idempotent.
	Disconnect(ctx context.Context) error
}

// RPCProvider implements Provider over a JSON-RPC endpoint.
type RPCProvider struct {
	client *rpc.Client
}

// DialProvider connects to the wallet RPC endpoint at url.
func DialProvider(ctx context.Context, url string) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RPCProvider{client: client}, nil
}

// Request forwards the call to the underlying JSON-RPC client. Errors
// carry the provider's code and message (see IsUnregisteredOwner).
func (p *RPCProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	err := p.client.CallContext(ctx, result, method, params...)
	if err != nil {
		logger.Debug("provider request failed",
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return err
}

// Disconnect issues a best-effort wallet_disconnect and closes the client.
func (p *RPCProvider) Disconnect(ctx context.Context) error {
	if err := p.client.CallContext(ctx, nil, "wallet_disconnect"); err != nil {
		logger.Debug("wallet_disconnect failed", zap.Error(err))
	}
	p.client.Close()
	return nil
}

// unregisteredOwnerMarker is the substring the provider embeds in the
// internal error raised when the sub-account's signing owner has not been
// registered on-chain yet.
const unregisteredOwnerMarker = "account owner not found"

// IsUnregisteredOwner reports whether err is the provider's
// "sub-account owner not registered" failure: a JSON-RPC internal error
// (-32603) whose message names the missing owner.
func IsUnregisteredOwner(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.ErrorCode() == -32603 && strings.Contains(rpcErr.Error(), unregisteredOwnerMarker)
}
