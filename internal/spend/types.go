package spend

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Permission is a delegated spend authorization: account grants spender
// the right to move up to allowance of token per period, within the
// [start, end) validity window. Immutable once signed; any change means a
// new permission and a new signature. Serialized in the provider's hex
// conventions so it round-trips through wallet_connect, typed-data
// signing and the session store unchanged.
type Permission struct {
	Account   common.Address `json:"account"`
	Spender   common.Address `json:"spender"`
	Token     common.Address `json:"token"`
	Allowance *hexutil.Big   `json:"allowance"`
	Period    hexutil.Uint64 `json:"period"`
	Start     hexutil.Uint64 `json:"start"`
	End       hexutil.Uint64 `json:"end"`
	Salt      *hexutil.Big   `json:"salt"`
	ExtraData hexutil.Bytes  `json:"extraData"`
}

// PeriodSpend is the accounting contract's record for the current period:
// window bounds plus cumulative spend so far. Ephemeral, always refetched.
type PeriodSpend struct {
	Start uint64
	End   uint64
	Spend *big.Int
}

// Call is one entry in a delegated batch.
type Call struct {
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

// Default grant parameters. The accounting period is one day and the salt
// is a fixed nonce; uniqueness within a profile comes from the validity
// window and the wiped-on-disconnect lifecycle, not the salt.
const DefaultPeriodSeconds = 86400

// DefaultSalt returns the fixed permission nonce.
func DefaultSalt() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1))
}
