package spend

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast-api/internal/wallet"
)

// linkingProvider answers wallet_connect by echoing the requested grant
// back in the provider's nested response shape.
func linkingProvider(t *testing.T) *fakeProvider {
	t.Helper()
	provider := &fakeProvider{}
	provider.handler = func(result interface{}, method string, params ...interface{}) error {
		if method != "wallet_connect" {
			return nil
		}
		req, ok := params[0].(connectRequest)
		require.True(t, ok)

		grant := req.Capabilities.SpendPermissions
		permission := Permission{
			Account:   testAccount,
			Spender:   testSubAccount,
			Token:     grant.Token,
			Allowance: grant.Allowance,
			Period:    hexutil.Uint64(grant.Period),
			Start:     hexutil.Uint64(1700000000),
			End:       hexutil.Uint64(1700086400),
			Salt:      grant.Salt,
			ExtraData: grant.ExtraData,
		}
		payload := mustMarshal(t, map[string]interface{}{
			"accounts": []map[string]interface{}{{
				"address": testAccount,
				"capabilities": map[string]interface{}{
					"addSubAccount": map[string]interface{}{"address": testSubAccount},
					"spendPermissions": map[string]interface{}{
						"permission": json.RawMessage(mustMarshal(t, &permission)),
						"signature":  hexutil.Bytes{0xaa, 0xbb},
					},
				},
			}},
		})
		return json.Unmarshal(payload, result)
	}
	return provider
}

func TestProvisionerCreateLinkedAccount(t *testing.T) {
	provider := linkingProvider(t)
	store := openTestStore(t)
	conn := wallet.NewConnection(provider, &fakeReader{})
	conn.SetAddresses(testAccount, testAccount) // connected, no sub-account yet
	provisioner := NewProvisioner(conn, newTestResolver(t, store), store)

	linked, err := provisioner.CreateLinkedAccount(context.Background(), "0.002")
	require.NoError(t, err)

	assert.Equal(t, testAccount, linked.Address)
	assert.Equal(t, testSubAccount, linked.SubAccount)
	assert.Equal(t, big.NewInt(2e15), (*big.Int)(linked.Permission.Allowance))
	assert.Equal(t, uint64(86400), uint64(linked.Permission.Period))
	assert.Equal(t, hexutil.Bytes{0xaa, 0xbb}, linked.Signature)

	// the connection now carries both addresses
	subaccount, ok := conn.SubAccount()
	require.True(t, ok)
	assert.Equal(t, testSubAccount, subaccount)

	// the grant was persisted for the next session
	sess, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, sess.Permission)

	var restored Permission
	require.NoError(t, json.Unmarshal(sess.Permission, &restored))
	assert.Equal(t, *linked.Permission, restored)
}

func TestProvisionerRequestShape(t *testing.T) {
	provider := linkingProvider(t)
	store := openTestStore(t)
	conn := wallet.NewConnection(provider, &fakeReader{})
	conn.SetAddresses(testAccount, testAccount)
	provisioner := NewProvisioner(conn, newTestResolver(t, store), store)

	_, err := provisioner.CreateLinkedAccount(context.Background(), "0.002")
	require.NoError(t, err)

	calls := provider.recorded()
	require.Len(t, calls, 1)
	req, ok := calls[0].params[0].(connectRequest)
	require.True(t, ok)

	assert.Equal(t, "1", req.Version)
	assert.Equal(t, "create", req.Capabilities.AddSubAccount.Account.Type)
	require.Len(t, req.Capabilities.AddSubAccount.Account.Keys, 1)
	// default signer is the local P-256 key
	assert.Equal(t, "webauthn-p256", req.Capabilities.AddSubAccount.Account.Keys[0].Type)
	assert.Len(t, req.Capabilities.AddSubAccount.Account.Keys[0].Key, 64)

	grant := req.Capabilities.SpendPermissions
	assert.Equal(t, big.NewInt(2e15), (*big.Int)(grant.Allowance))
	assert.Equal(t, uint64(86400), grant.Period)
	assert.Equal(t, big.NewInt(1), (*big.Int)(grant.Salt))
	assert.Empty(t, grant.ExtraData)
}

func TestProvisionerRequiresConnection(t *testing.T) {
	store := openTestStore(t)
	conn := wallet.NewConnection(&fakeProvider{}, &fakeReader{})
	provisioner := NewProvisioner(conn, newTestResolver(t, store), store)

	_, err := provisioner.CreateLinkedAccount(context.Background(), "0.002")
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestProvisionerRejectsBadAllowance(t *testing.T) {
	store := openTestStore(t)
	conn := wallet.NewConnection(&fakeProvider{}, &fakeReader{})
	conn.SetAddresses(testAccount, testAccount)
	provisioner := NewProvisioner(conn, newTestResolver(t, store), store)

	_, err := provisioner.CreateLinkedAccount(context.Background(), "not-a-number")
	assert.Error(t, err)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
