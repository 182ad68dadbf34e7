package signer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tipcast/tipcast-api/internal/session"
)

// localIdentity signs with an in-process P-256 keypair, the same curve a
// browser passkey owner uses. The public key doubles as the sub-account
// owner key (two 32-byte coordinates).
type localIdentity struct {
	key *ecdsa.PrivateKey
}

// loadOrCreateLocalIdentity restores the persisted keypair or generates
// and persists a fresh one.
func loadOrCreateLocalIdentity(store *session.Store) (*localIdentity, error) {
	der, err := store.LocalKey()
	if err != nil {
		return nil, err
	}
	if der != nil {
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("signer: failed to parse stored key: %w", err)
		}
		return &localIdentity{key: key}, nil
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signer: failed to generate key: %w", err)
	}
	der, err = x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("signer: failed to marshal key: %w", err)
	}
	if err := store.SetLocalKey(der); err != nil {
		return nil, err
	}
	return &localIdentity{key: key}, nil
}

func (l *localIdentity) Kind() Kind {
	return KindLocal
}

// OwnerKey returns the uncompressed public key as X||Y, 64 bytes.
func (l *localIdentity) OwnerKey() hexutil.Bytes {
	out := make([]byte, 64)
	l.key.PublicKey.X.FillBytes(out[:32])
	l.key.PublicKey.Y.FillBytes(out[32:])
	return out
}

// Sign produces a 64-byte r||s signature over the digest.
func (l *localIdentity) Sign(_ context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("signer: digest must be 32 bytes, got %d", len(digest))
	}
	r, s, err := ecdsa.Sign(rand.Reader, l.key, digest)
	if err != nil {
		return nil, fmt.Errorf("signer: local sign failed: %w", err)
	}
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}
