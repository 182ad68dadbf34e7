package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind selects one of the three signer backends.
type Kind string

const (
	// KindLocal is an in-process P-256 keypair persisted in the session
	// store; signing happens locally.
	KindLocal Kind = "local"
	// KindPrivy delegates custody and signing to a privy-style wallet
	// service, identified by wallet id.
	KindPrivy Kind = "privy"
	// KindTurnkey delegates custody and signing to a turnkey-style wallet
	// service, identified by address; signatures come back as raw r/s/v.
	KindTurnkey Kind = "turnkey"
)

// ParseKind validates a signer-kind selector.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLocal, KindPrivy, KindTurnkey:
		return Kind(s), nil
	}
	return "", fmt.Errorf("signer: invalid signer type: %s", s)
}

// Identity is a resolved signing capability. Immutable once resolved;
// discarded when the signer kind changes.
type Identity interface {
	// Kind returns the backend this identity belongs to.
	Kind() Kind

	// OwnerKey returns the key material registered as the sub-account
	// owner: the 64-byte uncompressed public key for the local kind, the
	// 20-byte wallet address for remote kinds.
	OwnerKey() hexutil.Bytes

	// Sign signs a 32-byte digest and returns the serialized signature.
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// SignResponse is a signing-service reply. Privy-style backends populate
// Signature (with an optional encoding tag); turnkey-style backends return
// the raw r/s/v triple which the caller assembles.
type SignResponse struct {
	Signature string `json:"signature,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	R         string `json:"r,omitempty"`
	S         string `json:"s,omitempty"`
	V         string `json:"v,omitempty"`
}

// SignRequest identifies the remote signer and the payload to sign.
type SignRequest struct {
	Kind    Kind   `json:"signerType"`
	ID      string `json:"id,omitempty"`
	Address string `json:"address,omitempty"`
	Message string `json:"message"`
}

// Backend provisions and drives remote custodial signers (the
// wallet-provisioning and signing service endpoints).
type Backend interface {
	CreateWallet(ctx context.Context, kind Kind) (id, address string, err error)
	Sign(ctx context.Context, req SignRequest) (*SignResponse, error)
}
