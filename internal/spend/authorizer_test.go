package spend

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/wallet"
)

func signingProvider(signature []byte) *fakeProvider {
	provider := &fakeProvider{}
	provider.handler = func(result interface{}, method string, params ...interface{}) error {
		if method == "eth_signTypedData_v4" {
			*result.(*hexutil.Bytes) = signature
		}
		return nil
	}
	return provider
}

func TestAuthorizerSign(t *testing.T) {
	signature := []byte{0xde, 0xad, 0xbe, 0xef}
	provider := signingProvider(signature)
	store := openTestStore(t)
	conn := newTestConnection(provider, &fakeReader{})
	authorizer := NewAuthorizer(conn, store)

	permission, sig, err := authorizer.Sign(context.Background(),
		big.NewInt(2e15), DefaultPeriodSeconds, 1700000000, 1700086400, big.NewInt(1), nil)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Bytes(signature), sig)

	assert.Equal(t, testAccount, permission.Account)
	assert.Equal(t, testSubAccount, permission.Spender)
	assert.Equal(t, chain.NativeToken, permission.Token)
	assert.Equal(t, big.NewInt(2e15), (*big.Int)(permission.Allowance))
	assert.Equal(t, uint64(DefaultPeriodSeconds), uint64(permission.Period))
	assert.NotNil(t, permission.ExtraData)

	calls := provider.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "eth_signTypedData_v4", calls[0].method)
	assert.Equal(t, testAccount, calls[0].params[0])

	typedData, ok := calls[0].params[1].(apitypes.TypedData)
	require.True(t, ok)
	assert.Equal(t, "SpendPermission", typedData.PrimaryType)
	assert.Equal(t, "Spend Permission Manager", typedData.Domain.Name)
	assert.Equal(t, "1", typedData.Domain.Version)
	assert.Equal(t, chain.SpendPermissionManager.Hex(), typedData.Domain.VerifyingContract)
	assert.Equal(t, testAccount.Hex(), typedData.Message["account"])
	assert.Equal(t, "2000000000000000", typedData.Message["allowance"])
}

func TestAuthorizerPersistsAndRoundTrips(t *testing.T) {
	signature := []byte{0x01, 0x02, 0x03}
	store := openTestStore(t)
	conn := newTestConnection(signingProvider(signature), &fakeReader{})
	authorizer := NewAuthorizer(conn, store)

	signed, _, err := authorizer.Sign(context.Background(),
		big.NewInt(2e15), DefaultPeriodSeconds, 1700000000, 1700086400, big.NewInt(1), nil)
	require.NoError(t, err)

	sess, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, sess.Permission)
	assert.Equal(t, signature, sess.Signature)

	var restored Permission
	require.NoError(t, json.Unmarshal(sess.Permission, &restored))
	assert.Equal(t, *signed, restored)
}

func TestAuthorizerRequiresConnection(t *testing.T) {
	store := openTestStore(t)
	conn := wallet.NewConnection(&fakeProvider{}, &fakeReader{})
	authorizer := NewAuthorizer(conn, store)

	_, _, err := authorizer.Sign(context.Background(),
		big.NewInt(1), DefaultPeriodSeconds, 0, 1, big.NewInt(1), nil)
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestAuthorizerSurfacesRejection(t *testing.T) {
	provider := &fakeProvider{}
	provider.handler = func(interface{}, string, ...interface{}) error {
		return &rpcError{code: 4001, msg: "user rejected"}
	}
	store := openTestStore(t)
	conn := newTestConnection(provider, &fakeReader{})
	authorizer := NewAuthorizer(conn, store)

	_, _, err := authorizer.Sign(context.Background(),
		big.NewInt(1), DefaultPeriodSeconds, 0, 1, big.NewInt(1), nil)
	require.Error(t, err)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess.Permission)
}
