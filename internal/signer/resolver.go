package signer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/session"
	"go.uber.org/zap"
)

// Resolver lazily resolves the active signing identity for the selected
// kind and caches it until the kind changes or the cache is invalidated.
// Remote kinds are provisioned at most once per profile; the provisioned
// wallet is persisted and restored on later resolutions.
type Resolver struct {
	store   *session.Store
	backend Backend

	mu     sync.Mutex
	kind   Kind
	active Identity
}

// NewResolver builds a resolver over the session store and the custody
// backend. The starting kind is restored from the store when present,
// defaulting to the local signer.
func NewResolver(store *session.Store, backend Backend) (*Resolver, error) {
	kind := KindLocal
	if saved, err := store.SignerKind(); err != nil {
		return nil, err
	} else if saved != "" {
		parsed, err := ParseKind(saved)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}
	return &Resolver{store: store, backend: backend, kind: kind}, nil
}

// Kind returns the currently selected signer kind.
func (r *Resolver) Kind() Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kind
}

// SetKind switches the signer kind. Switching invalidates the cached
// identity and wipes the session store: a permission authorized by one
// signer is useless to another.
func (r *Resolver) SetKind(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == r.kind {
		return nil
	}
	if err := r.store.Wipe(); err != nil {
		return err
	}
	if err := r.store.SetSignerKind(string(kind)); err != nil {
		return err
	}
	r.kind = kind
	r.active = nil
	logger.Info("signer kind changed", zap.String("kind", string(kind)))
	return nil
}

// Resolve returns the active identity for the current kind, creating and
// caching it on first use.
func (r *Resolver) Resolve(ctx context.Context) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return r.active, nil
	}

	identity, err := r.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}
	r.active = identity
	return identity, nil
}

func (r *Resolver) resolveLocked(ctx context.Context) (Identity, error) {
	switch r.kind {
	case KindLocal:
		return loadOrCreateLocalIdentity(r.store)
	case KindPrivy, KindTurnkey:
		return r.resolveRemoteLocked(ctx, r.kind)
	}
	return nil, fmt.Errorf("signer: invalid signer type: %s", r.kind)
}

// resolveRemoteLocked restores a previously provisioned custodial wallet
// or provisions a fresh one through the backend.
func (r *Resolver) resolveRemoteLocked(ctx context.Context, kind Kind) (Identity, error) {
	cached, err := r.store.RemoteSigner(string(kind))
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &remoteIdentity{
			kind:    kind,
			id:      cached.ID,
			address: common.HexToAddress(cached.Address),
			backend: r.backend,
		}, nil
	}

	id, address, err := r.backend.CreateWallet(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("signer: failed to provision %s wallet: %w", kind, err)
	}
	if err := r.store.SetRemoteSigner(string(kind), session.RemoteSigner{ID: id, Address: address}); err != nil {
		return nil, err
	}
	logger.Info("provisioned custodial signer",
		zap.String("kind", string(kind)),
		zap.String("address", address),
	)
	return &remoteIdentity{
		kind:    kind,
		id:      id,
		address: common.HexToAddress(address),
		backend: r.backend,
	}, nil
}

// Invalidate drops the cached identity so the next Resolve rebuilds it
// from persisted state. Used after the session store is wiped.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
}
