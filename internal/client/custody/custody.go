// Package custody holds clients for the external wallet-custody services
// that back the remote signer kinds. Each provider can create a wallet
// and sign a payload with it; key material never leaves the provider.
package custody

import "context"

// Wallet is a provisioned custodial wallet.
type Wallet struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// SignResult is a provider signature. Privy returns a serialized
// signature with an encoding tag; Turnkey returns the raw r/s components
// plus a 00/01 recovery indicator.
type SignResult struct {
	Signature string `json:"signature,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	R         string `json:"r,omitempty"`
	S         string `json:"s,omitempty"`
	V         string `json:"v,omitempty"`
}

// Provider is one custody backend.
type Provider interface {
	// CreateWallet provisions a fresh wallet.
	CreateWallet(ctx context.Context) (*Wallet, error)

	// SignMessage signs message (hex-encoded payload) with the wallet
	// identified by id or address, whichever the provider keys on.
	SignMessage(ctx context.Context, id, address, message string) (*SignResult, error)
}
