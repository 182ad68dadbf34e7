package spend

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/signer"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"
)

// ErrNoSignature is returned by Execute when no signed permission is
// active. Raised before any network call.
var ErrNoSignature = errors.New("spend: no signed permission")

// Executor submits delegated batches. Every value-moving action funnels
// through Execute, which prepends the permission approval and the spend
// accounting call so the whole action lands atomically.
type Executor struct {
	conn         *wallet.Connection
	resolver     *signer.Resolver
	accountant   *Accountant
	paymasterURL string
}

// NewExecutor builds an executor. paymasterURL is attached to every batch
// as the fee-sponsorship capability so the sub-account needs no gas.
func NewExecutor(conn *wallet.Connection, resolver *signer.Resolver, accountant *Accountant, paymasterURL string) *Executor {
	return &Executor{
		conn:         conn,
		resolver:     resolver,
		accountant:   accountant,
		paymasterURL: paymasterURL,
	}
}

type sendCallsRequest struct {
	Version      string                 `json:"version"`
	ChainID      string                 `json:"chainId"`
	From         common.Address         `json:"from"`
	Calls        []Call                 `json:"calls"`
	Capabilities *sendCallsCapabilities `json:"capabilities,omitempty"`
}

type sendCallsCapabilities struct {
	PaymasterService paymasterService `json:"paymasterService"`
}

type paymasterService struct {
	URL string `json:"url"`
}

// Execute submits [approve, spend, extraCalls...] as one atomic batch
// from the sub-account, spending valueWei against the permission. The
// approval must precede the spend and the spend must precede any call
// that assumes funds have moved.
//
// One failure is recoverable: the provider rejecting the batch because
// the sub-account's signing owner is not registered on-chain. Execute
// then submits an owner-registration call from the primary address and
// returns an empty handle; the caller retries the action once the repair
// lands. Every other error propagates.
func (e *Executor) Execute(ctx context.Context, permission *Permission, signature []byte, extraCalls []Call, valueWei *big.Int) (string, error) {
	subaccount, ok := e.conn.SubAccount()
	if !ok {
		return "", wallet.ErrNotConnected
	}
	if permission == nil || len(signature) == 0 {
		return "", ErrNoSignature
	}
	identity, err := e.resolver.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve signer: %w", err)
	}

	approveData, err := packApproveWithSignature(permission, signature)
	if err != nil {
		return "", err
	}
	spendData, err := packSpend(permission, valueWei)
	if err != nil {
		return "", err
	}

	calls := make([]Call, 0, 2+len(extraCalls))
	calls = append(calls,
		Call{To: chain.SpendPermissionManager, Value: (*hexutil.Big)(big.NewInt(0)), Data: approveData},
		Call{To: chain.SpendPermissionManager, Value: (*hexutil.Big)(big.NewInt(0)), Data: spendData},
	)
	calls = append(calls, extraCalls...)

	req := sendCallsRequest{
		Version: "1",
		ChainID: chain.HexID(),
		From:    subaccount,
		Calls:   calls,
		Capabilities: &sendCallsCapabilities{
			PaymasterService: paymasterService{URL: e.paymasterURL},
		},
	}

	var handle string
	if err := e.conn.Provider().Request(ctx, &handle, "wallet_sendCalls", req); err != nil {
		if wallet.IsUnregisteredOwner(err) {
			return "", e.repairOwner(ctx, identity, subaccount)
		}
		return "", fmt.Errorf("failed to submit delegated batch: %w", err)
	}

	go e.accountant.Refresh(context.Background())

	logger.Info("delegated batch submitted",
		zap.String("handle", handle),
		zap.String("subaccount", subaccount.Hex()),
		zap.String("value", valueWei.String()),
	)
	return handle, nil
}

// repairOwner registers the signer as an owner of the sub-account. The
// registration is sent from the primary address, which is already an
// owner. The original action is reported as not completed; the caller
// retries after the repair lands.
func (e *Executor) repairOwner(ctx context.Context, identity signer.Identity, subaccount common.Address) error {
	address, ok := e.conn.Address()
	if !ok {
		return wallet.ErrNotConnected
	}

	var data []byte
	var err error
	if identity.Kind() == signer.KindLocal {
		data, err = packAddOwnerPublicKey(identity.OwnerKey())
	} else {
		data, err = packAddOwnerAddress(common.BytesToAddress(identity.OwnerKey()))
	}
	if err != nil {
		return err
	}

	req := sendCallsRequest{
		Version: "1",
		ChainID: chain.HexID(),
		From:    address,
		Calls: []Call{{
			To:    subaccount,
			Value: (*hexutil.Big)(big.NewInt(0)),
			Data:  data,
		}},
	}

	var handle string
	if err := e.conn.Provider().Request(ctx, &handle, "wallet_sendCalls", req); err != nil {
		return fmt.Errorf("failed to register sub-account owner: %w", err)
	}

	logger.Info("sub-account owner registered",
		zap.String("handle", handle),
		zap.String("subaccount", subaccount.Hex()),
		zap.String("kind", string(identity.Kind())),
	)
	return nil
}
