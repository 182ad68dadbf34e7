package spend

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/session"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"
)

// typedDataTypes is the fixed schema of the allowance grant. Field order
// matters: it determines the struct hash the accounting contract verifies.
var typedDataTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SpendPermission": {
		{Name: "account", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "token", Type: "address"},
		{Name: "allowance", Type: "uint160"},
		{Name: "period", Type: "uint48"},
		{Name: "start", Type: "uint48"},
		{Name: "end", Type: "uint48"},
		{Name: "salt", Type: "uint256"},
		{Name: "extraData", Type: "bytes"},
	},
}

// Authorizer produces signed allowance grants. It builds the permission
// from connection state, has the provider sign it as typed data and
// persists the (permission, signature) pair.
type Authorizer struct {
	conn  *wallet.Connection
	store *session.Store
}

// NewAuthorizer builds an authorizer over the connection and store.
func NewAuthorizer(conn *wallet.Connection, store *session.Store) *Authorizer {
	return &Authorizer{conn: conn, store: store}
}

// Sign constructs a permission from connection state plus the supplied
// grant fields, requests a typed-data signature from the provider and
// persists the result. Signature rejection is not retried.
func (a *Authorizer) Sign(ctx context.Context, allowance *big.Int, period, start, end uint64, salt *big.Int, extraData []byte) (*Permission, hexutil.Bytes, error) {
	account, ok := a.conn.Address()
	if !ok {
		return nil, nil, wallet.ErrNotConnected
	}
	spender, ok := a.conn.SubAccount()
	if !ok {
		return nil, nil, fmt.Errorf("no linked sub-account")
	}

	if extraData == nil {
		extraData = []byte{}
	}
	permission := &Permission{
		Account:   account,
		Spender:   spender,
		Token:     chain.NativeToken,
		Allowance: (*hexutil.Big)(allowance),
		Period:    hexutil.Uint64(period),
		Start:     hexutil.Uint64(start),
		End:       hexutil.Uint64(end),
		Salt:      (*hexutil.Big)(salt),
		ExtraData: extraData,
	}

	typedData := TypedData(permission)
	var signature hexutil.Bytes
	if err := a.conn.Provider().Request(ctx, &signature, "eth_signTypedData_v4", account, typedData); err != nil {
		return nil, nil, fmt.Errorf("failed to sign spend permission: %w", err)
	}

	if err := a.persist(permission, signature); err != nil {
		return nil, nil, err
	}

	logger.Info("spend permission signed",
		zap.String("account", account.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("allowance", (*big.Int)(permission.Allowance).String()),
	)
	return permission, signature, nil
}

func (a *Authorizer) persist(permission *Permission, signature []byte) error {
	raw, err := json.Marshal(permission)
	if err != nil {
		return fmt.Errorf("failed to marshal permission: %w", err)
	}
	if err := a.store.SavePermission(raw, signature); err != nil {
		return fmt.Errorf("failed to persist permission: %w", err)
	}
	return nil
}

// TypedData renders a permission as the canonical typed-data structure the
// accounting contract verifies, bound to the supported network and the
// accounting contract's address.
func TypedData(p *Permission) apitypes.TypedData {
	chainID := new(big.Int).SetUint64(chain.ID)
	return apitypes.TypedData{
		Types:       typedDataTypes,
		PrimaryType: "SpendPermission",
		Domain: apitypes.TypedDataDomain{
			Name:              "Spend Permission Manager",
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: chain.SpendPermissionManager.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"account":   p.Account.Hex(),
			"spender":   p.Spender.Hex(),
			"token":     p.Token.Hex(),
			"allowance": (*big.Int)(p.Allowance).String(),
			"period":    new(big.Int).SetUint64(uint64(p.Period)).String(),
			"start":     new(big.Int).SetUint64(uint64(p.Start)).String(),
			"end":       new(big.Int).SetUint64(uint64(p.End)).String(),
			"salt":      (*big.Int)(p.Salt).String(),
			"extraData": hexutil.Encode(p.ExtraData),
		},
	}
}
