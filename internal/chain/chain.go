package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// The app targets exactly one network: Base Sepolia.
const (
	ID   uint64 = 84532
	Name        = "Base Sepolia"

	// DefaultRPCURL is used for contract reads when RPC_URL is not set.
	DefaultRPCURL = "https://sepolia.base.org"
)

var (
	// SpendPermissionManager is the accounting contract that tracks
	// per-period spend against signed permissions.
	SpendPermissionManager = common.HexToAddress("0xf85210B21cC50302F477BA56686d2019dC9b67Ad")

	// NativeToken is the sentinel address representing the chain's
	// native asset in a spend permission.
	NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
)

// HexID returns the chain id as a 0x-prefixed quantity, the form the
// wallet provider protocol expects.
func HexID() string {
	return fmt.Sprintf("0x%x", ID)
}
