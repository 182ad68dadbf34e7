package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// remoteIdentity delegates signing to a custodial wallet service. The
// wallet was provisioned (or restored from cache) by the resolver.
type remoteIdentity struct {
	kind    Kind
	id      string
	address common.Address
	backend Backend
}

func (r *remoteIdentity) Kind() Kind {
	return r.kind
}

// OwnerKey is the custodial wallet's address; remote kinds register the
// sub-account owner by address rather than by public key.
func (r *remoteIdentity) OwnerKey() hexutil.Bytes {
	return r.address.Bytes()
}

// Sign forwards the digest to the signing service and normalizes the
// response into the standard 65-byte r||s||v form.
func (r *remoteIdentity) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	resp, err := r.backend.Sign(ctx, SignRequest{
		Kind:    r.kind,
		ID:      r.id,
		Address: r.address.Hex(),
		Message: hexutil.Encode(digest),
	})
	if err != nil {
		return nil, fmt.Errorf("signer: remote sign failed: %w", err)
	}

	if resp.Signature != "" {
		sig, err := hexutil.Decode(resp.Signature)
		if err != nil {
			return nil, fmt.Errorf("signer: malformed signature from service: %w", err)
		}
		return sig, nil
	}

	if resp.R != "" && resp.S != "" {
		return assembleSignature(resp.R, resp.S, resp.V)
	}

	return nil, fmt.Errorf("signer: signing service returned no usable signature")
}

// assembleSignature builds the 65-byte serialized form from raw r/s plus
// the service's 00/01 recovery indicator (00 maps to v=27, anything else
// to v=28).
func assembleSignature(rHex, sHex, vIndicator string) ([]byte, error) {
	r, ok := new(big.Int).SetString(stripHexPrefix(rHex), 16)
	if !ok {
		return nil, fmt.Errorf("signer: malformed r component: %s", rHex)
	}
	s, ok := new(big.Int).SetString(stripHexPrefix(sHex), 16)
	if !ok {
		return nil, fmt.Errorf("signer: malformed s component: %s", sHex)
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, fmt.Errorf("signer: signature component exceeds 32 bytes")
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	if vIndicator == "00" {
		sig[64] = 27
	} else {
		sig[64] = 28
	}
	return sig, nil
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
