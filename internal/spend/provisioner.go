package spend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/session"
	"github.com/tipcast/tipcast-api/internal/signer"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"
)

// Provisioner links a sub-account to the primary wallet. Sub-account
// creation and the initial allowance grant ride in one wallet_connect
// round trip; the provider composes the two atomically so there is no
// window with a sub-account but no permission.
type Provisioner struct {
	conn     *wallet.Connection
	resolver *signer.Resolver
	store    *session.Store
}

// NewProvisioner builds a provisioner over the connection, the signer
// resolver and the session store.
func NewProvisioner(conn *wallet.Connection, resolver *signer.Resolver, store *session.Store) *Provisioner {
	return &Provisioner{conn: conn, resolver: resolver, store: store}
}

// LinkedAccount is the result of a linking flow.
type LinkedAccount struct {
	Address    common.Address
	SubAccount common.Address
	Permission *Permission
	Signature  hexutil.Bytes
}

// connectRequest is the wallet_connect capability envelope.
type connectRequest struct {
	Version      string              `json:"version"`
	Capabilities connectCapabilities `json:"capabilities"`
}

type connectCapabilities struct {
	AddSubAccount    addSubAccountCapability `json:"addSubAccount"`
	SpendPermissions spendPermissionGrant    `json:"spendPermissions"`
}

type addSubAccountCapability struct {
	Account subAccountSpec `json:"account"`
}

type subAccountSpec struct {
	Type string          `json:"type"`
	Keys []subAccountKey `json:"keys"`
}

type subAccountKey struct {
	Type string        `json:"type"`
	Key  hexutil.Bytes `json:"key"`
}

type spendPermissionGrant struct {
	Token     common.Address `json:"token"`
	Allowance *hexutil.Big   `json:"allowance"`
	Period    uint64         `json:"period"`
	Salt      *hexutil.Big   `json:"salt"`
	ExtraData hexutil.Bytes  `json:"extraData"`
}

// connectResponse mirrors the nested wallet_connect reply.
type connectResponse struct {
	Accounts []struct {
		Address      common.Address `json:"address"`
		Capabilities struct {
			AddSubAccount struct {
				Address common.Address `json:"address"`
			} `json:"addSubAccount"`
			SpendPermissions struct {
				Permission json.RawMessage `json:"permission"`
				Signature  hexutil.Bytes   `json:"signature"`
			} `json:"spendPermissions"`
		} `json:"capabilities"`
	} `json:"accounts"`
}

// ownerKeyType returns the provider's key-type tag for a signer kind: the
// local kind registers a raw P-256 public key, remote kinds an address.
func ownerKeyType(kind signer.Kind) string {
	if kind == signer.KindLocal {
		return "webauthn-p256"
	}
	return "address"
}

// CreateLinkedAccount creates a sub-account owned by the resolved signer
// and grants it requestedAllowance (decimal ether) of the native token
// per day. The returned permission and signature are persisted and the
// connection's addresses are updated.
func (p *Provisioner) CreateLinkedAccount(ctx context.Context, requestedAllowance string) (*LinkedAccount, error) {
	if _, ok := p.conn.Address(); !ok {
		return nil, wallet.ErrNotConnected
	}
	identity, err := p.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signer: %w", err)
	}

	allowanceWei, err := ParseEther(requestedAllowance)
	if err != nil {
		return nil, err
	}

	req := connectRequest{
		Version: "1",
		Capabilities: connectCapabilities{
			AddSubAccount: addSubAccountCapability{
				Account: subAccountSpec{
					Type: "create",
					Keys: []subAccountKey{{
						Type: ownerKeyType(identity.Kind()),
						Key:  identity.OwnerKey(),
					}},
				},
			},
			SpendPermissions: spendPermissionGrant{
				Token:     chain.NativeToken,
				Allowance: (*hexutil.Big)(allowanceWei),
				Period:    DefaultPeriodSeconds,
				Salt:      DefaultSalt(),
				ExtraData: hexutil.Bytes{},
			},
		},
	}

	var resp connectResponse
	if err := p.conn.Provider().Request(ctx, &resp, "wallet_connect", req); err != nil {
		return nil, fmt.Errorf("failed to create linked account: %w", err)
	}
	if len(resp.Accounts) == 0 {
		return nil, fmt.Errorf("linked-account response contains no accounts")
	}

	account := resp.Accounts[0]
	grant := account.Capabilities.SpendPermissions
	if grant.Permission == nil || len(grant.Signature) == 0 {
		return nil, fmt.Errorf("linked-account response contains no spend permission")
	}

	var permission Permission
	if err := json.Unmarshal(grant.Permission, &permission); err != nil {
		return nil, fmt.Errorf("failed to decode granted permission: %w", err)
	}

	if err := p.store.SavePermission(grant.Permission, grant.Signature); err != nil {
		return nil, fmt.Errorf("failed to persist granted permission: %w", err)
	}
	p.conn.SetAddresses(account.Address, account.Capabilities.AddSubAccount.Address)

	logger.Info("linked sub-account created",
		zap.String("address", account.Address.Hex()),
		zap.String("subaccount", account.Capabilities.AddSubAccount.Address.Hex()),
		zap.String("allowance", allowanceWei.String()),
	)

	return &LinkedAccount{
		Address:    account.Address,
		SubAccount: account.Capabilities.AddSubAccount.Address,
		Permission: &permission,
		Signature:  grant.Signature,
	}, nil
}
