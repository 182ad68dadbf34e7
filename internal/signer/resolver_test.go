package signer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverDefaultsToLocal(t *testing.T) {
	resolver, err := NewResolver(openTestStore(t), &fakeBackend{})
	require.NoError(t, err)
	assert.Equal(t, KindLocal, resolver.Kind())

	identity, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindLocal, identity.Kind())
}

func TestResolverRestoresSavedKind(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SetSignerKind("turnkey"))

	resolver, err := NewResolver(store, &fakeBackend{})
	require.NoError(t, err)
	assert.Equal(t, KindTurnkey, resolver.Kind())
}

func TestResolverCachesIdentity(t *testing.T) {
	backend := &fakeBackend{createID: "wallet-1", createAddress: "0x4444444444444444444444444444444444444444"}
	resolver, err := NewResolver(openTestStore(t), backend)
	require.NoError(t, err)
	require.NoError(t, resolver.SetKind(KindPrivy))

	first, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background())
	require.NoError(t, err)

	assert.Same(t, first.(*remoteIdentity), second.(*remoteIdentity))
	assert.Equal(t, 1, backend.createCalls)
}

func TestResolverReusesProvisionedWallet(t *testing.T) {
	store := openTestStore(t)
	backend := &fakeBackend{createID: "wallet-1", createAddress: "0x4444444444444444444444444444444444444444"}
	resolver, err := NewResolver(store, backend)
	require.NoError(t, err)
	require.NoError(t, resolver.SetKind(KindTurnkey))

	_, err = resolver.Resolve(context.Background())
	require.NoError(t, err)

	// a later session restores the cached identifier instead of provisioning
	later, err := NewResolver(store, backend)
	require.NoError(t, err)
	identity, err := later.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.createCalls)
	assert.Equal(t, KindTurnkey, identity.Kind())
}

func TestSetKindWipesState(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SavePermission([]byte(`{}`), []byte{0x01}))

	resolver, err := NewResolver(store, &fakeBackend{createID: "w", createAddress: "0x4444444444444444444444444444444444444444"})
	require.NoError(t, err)

	first, err := resolver.Resolve(context.Background())
	require.NoError(t, err)

	require.NoError(t, resolver.SetKind(KindPrivy))

	// the stored permission was signed under the old signer and is gone
	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess.Permission)

	kind, err := store.SignerKind()
	require.NoError(t, err)
	assert.Equal(t, "privy", kind)

	second, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Kind(), second.Kind())
}

func TestSetKindSameKindKeepsState(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SavePermission([]byte(`{}`), []byte{0x01}))

	resolver, err := NewResolver(store, &fakeBackend{})
	require.NoError(t, err)
	require.NoError(t, resolver.SetKind(KindLocal))

	sess, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, sess.Permission)
}

func TestResolverInvalidate(t *testing.T) {
	backend := &fakeBackend{createID: "w", createAddress: "0x4444444444444444444444444444444444444444"}
	resolver, err := NewResolver(openTestStore(t), backend)
	require.NoError(t, err)
	require.NoError(t, resolver.SetKind(KindPrivy))

	_, err = resolver.Resolve(context.Background())
	require.NoError(t, err)

	resolver.Invalidate()
	_, err = resolver.Resolve(context.Background())
	require.NoError(t, err)

	// the wallet itself is still cached in the store
	assert.Equal(t, 1, backend.createCalls)
}
