package spend

import (
	"context"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/wallet"
	"go.uber.org/zap"
)

// Accountant tracks remaining allowance against the on-chain accounting
// contract. Refresh is best-effort telemetry: read failures never
// propagate and never invalidate the previous cached values.
type Accountant struct {
	reader wallet.ChainReader

	mu         sync.Mutex
	permission *Permission
	period     *PeriodSpend
	remaining  *big.Int
}

// NewAccountant builds an accountant over the chain read path.
func NewAccountant(reader wallet.ChainReader) *Accountant {
	return &Accountant{reader: reader}
}

// SetPermission makes permission the one being accounted. The cached
// period record and remaining allowance are reset until the next Refresh.
func (a *Accountant) SetPermission(p *Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permission = p
	a.period = nil
	a.remaining = nil
}

// Clear drops the active permission and all cached accounting state.
func (a *Accountant) Clear() {
	a.SetPermission(nil)
}

// Refresh reads the current-period record from the accounting contract
// and recomputes remaining = allowance - spend, clamped at zero. No-op
// without an active permission. Idempotent; safe to call repeatedly.
func (a *Accountant) Refresh(ctx context.Context) {
	a.mu.Lock()
	permission := a.permission
	a.mu.Unlock()
	if permission == nil {
		return
	}

	data, err := packGetCurrentPeriod(permission)
	if err != nil {
		logger.Error("failed to build allowance query", zap.Error(err))
		return
	}

	out, err := a.reader.CallContract(ctx, ethereum.CallMsg{
		To:   &chain.SpendPermissionManager,
		Data: data,
	}, nil)
	if err != nil {
		logger.Warn("allowance refresh failed", zap.Error(err))
		return
	}

	period, err := unpackCurrentPeriod(out)
	if err != nil {
		logger.Warn("allowance refresh returned malformed data", zap.Error(err))
		return
	}

	remaining := new(big.Int).Sub((*big.Int)(permission.Allowance), period.Spend)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}

	a.mu.Lock()
	// the permission may have changed while the read was in flight
	if a.permission == permission {
		a.period = period
		a.remaining = remaining
	}
	a.mu.Unlock()
}

// Remaining returns the cached remaining allowance in wei, or false when
// no refresh has completed for the active permission.
func (a *Accountant) Remaining() (*big.Int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remaining == nil {
		return nil, false
	}
	return new(big.Int).Set(a.remaining), true
}

// Period returns the cached current-period record, or false when no
// refresh has completed for the active permission.
func (a *Accountant) Period() (*PeriodSpend, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.period == nil {
		return nil, false
	}
	cp := *a.period
	cp.Spend = new(big.Int).Set(a.period.Spend)
	return &cp, true
}

// Permission returns the active permission, if any.
func (a *Accountant) Permission() *Permission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permission
}
