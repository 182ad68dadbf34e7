package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSignerKindRoundTrip(t *testing.T) {
	store := openTestStore(t)

	kind, err := store.SignerKind()
	require.NoError(t, err)
	assert.Empty(t, kind)

	require.NoError(t, store.SetSignerKind("turnkey"))
	kind, err = store.SignerKind()
	require.NoError(t, err)
	assert.Equal(t, "turnkey", kind)
}

func TestRemoteSignerRoundTrip(t *testing.T) {
	store := openTestStore(t)

	cached, err := store.RemoteSigner("privy")
	require.NoError(t, err)
	assert.Nil(t, cached)

	saved := RemoteSigner{ID: "wallet-123", Address: "0x1111111111111111111111111111111111111111"}
	require.NoError(t, store.SetRemoteSigner("privy", saved))

	cached, err = store.RemoteSigner("privy")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, saved, *cached)

	// each kind has its own slot
	other, err := store.RemoteSigner("turnkey")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestPermissionRoundTrip(t *testing.T) {
	store := openTestStore(t)

	permission := []byte(`{"account":"0x1111111111111111111111111111111111111111"}`)
	signature := []byte{0x01, 0x02}
	require.NoError(t, store.SavePermission(permission, signature))

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, permission, []byte(sess.Permission))
	assert.Equal(t, signature, sess.Signature)
}

func TestLoadTreatsPartialWriteAsNoSession(t *testing.T) {
	store := openTestStore(t)

	// a permission whose signature write never landed
	require.NoError(t, store.set(keyPermission, []byte(`{}`)))

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess.Permission)
	assert.Nil(t, sess.Signature)
}

func TestWipe(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SetSignerKind("local"))
	require.NoError(t, store.SetLocalKey([]byte{0xde, 0xad}))
	require.NoError(t, store.SavePermission([]byte(`{}`), []byte{0x01}))

	require.NoError(t, store.Wipe())

	kind, err := store.SignerKind()
	require.NoError(t, err)
	assert.Empty(t, kind)

	key, err := store.LocalKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess.Permission)
}
