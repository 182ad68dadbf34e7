package spend

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABI fragments for the spend-permission accounting contract and the
// smart-account owner registry. Only the methods this package calls are
// declared.
const managerABIJSON = `[
  {
    "type": "function",
    "name": "getCurrentPeriod",
    "stateMutability": "view",
    "inputs": [
      {
        "name": "spendPermission",
        "type": "tuple",
        "components": [
          {"name": "account", "type": "address"},
          {"name": "spender", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "allowance", "type": "uint160"},
          {"name": "period", "type": "uint48"},
          {"name": "start", "type": "uint48"},
          {"name": "end", "type": "uint48"},
          {"name": "salt", "type": "uint256"},
          {"name": "extraData", "type": "bytes"}
        ]
      }
    ],
    "outputs": [
      {
        "name": "",
        "type": "tuple",
        "components": [
          {"name": "start", "type": "uint48"},
          {"name": "end", "type": "uint48"},
          {"name": "spend", "type": "uint160"}
        ]
      }
    ]
  },
  {
    "type": "function",
    "name": "approveWithSignature",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "spendPermission",
        "type": "tuple",
        "components": [
          {"name": "account", "type": "address"},
          {"name": "spender", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "allowance", "type": "uint160"},
          {"name": "period", "type": "uint48"},
          {"name": "start", "type": "uint48"},
          {"name": "end", "type": "uint48"},
          {"name": "salt", "type": "uint256"},
          {"name": "extraData", "type": "bytes"}
        ]
      },
      {"name": "signature", "type": "bytes"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "spend",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "spendPermission",
        "type": "tuple",
        "components": [
          {"name": "account", "type": "address"},
          {"name": "spender", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "allowance", "type": "uint160"},
          {"name": "period", "type": "uint48"},
          {"name": "start", "type": "uint48"},
          {"name": "end", "type": "uint48"},
          {"name": "salt", "type": "uint256"},
          {"name": "extraData", "type": "bytes"}
        ]
      },
      {"name": "value", "type": "uint160"}
    ],
    "outputs": []
  }
]`

const accountABIJSON = `[
  {
    "type": "function",
    "name": "addOwnerPublicKey",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "x", "type": "bytes32"},
      {"name": "y", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "addOwnerAddress",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "owner", "type": "address"}
    ],
    "outputs": []
  }
]`

var (
	managerABI = mustParseABI(managerABIJSON)
	accountABI = mustParseABI(accountABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("spend: bad ABI definition: %v", err))
	}
	return parsed
}

// permissionTuple mirrors the contract's SpendPermission struct layout for
// ABI packing. Non-standard integer widths map to *big.Int.
type permissionTuple struct {
	Account   common.Address `abi:"account"`
	Spender   common.Address `abi:"spender"`
	Token     common.Address `abi:"token"`
	Allowance *big.Int       `abi:"allowance"`
	Period    *big.Int       `abi:"period"`
	Start     *big.Int       `abi:"start"`
	End       *big.Int       `abi:"end"`
	Salt      *big.Int       `abi:"salt"`
	ExtraData []byte         `abi:"extraData"`
}

// periodTuple mirrors the contract's PeriodSpend return struct.
type periodTuple struct {
	Start *big.Int `abi:"start"`
	End   *big.Int `abi:"end"`
	Spend *big.Int `abi:"spend"`
}

func toTuple(p *Permission) permissionTuple {
	return permissionTuple{
		Account:   p.Account,
		Spender:   p.Spender,
		Token:     p.Token,
		Allowance: (*big.Int)(p.Allowance),
		Period:    new(big.Int).SetUint64(uint64(p.Period)),
		Start:     new(big.Int).SetUint64(uint64(p.Start)),
		End:       new(big.Int).SetUint64(uint64(p.End)),
		Salt:      (*big.Int)(p.Salt),
		ExtraData: p.ExtraData,
	}
}

// packGetCurrentPeriod encodes the accounting read for a permission.
func packGetCurrentPeriod(p *Permission) ([]byte, error) {
	data, err := managerABI.Pack("getCurrentPeriod", toTuple(p))
	if err != nil {
		return nil, fmt.Errorf("failed to encode getCurrentPeriod: %w", err)
	}
	return data, nil
}

// unpackCurrentPeriod decodes the accounting read result.
func unpackCurrentPeriod(data []byte) (*PeriodSpend, error) {
	var out periodTuple
	if err := managerABI.UnpackIntoInterface(&out, "getCurrentPeriod", data); err != nil {
		return nil, fmt.Errorf("failed to decode getCurrentPeriod result: %w", err)
	}
	return &PeriodSpend{
		Start: out.Start.Uint64(),
		End:   out.End.Uint64(),
		Spend: out.Spend,
	}, nil
}

// packApproveWithSignature encodes the permission-approval call.
func packApproveWithSignature(p *Permission, signature []byte) ([]byte, error) {
	data, err := managerABI.Pack("approveWithSignature", toTuple(p), signature)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approveWithSignature: %w", err)
	}
	return data, nil
}

// packSpend encodes the spend-accounting call for value wei.
func packSpend(p *Permission, value *big.Int) ([]byte, error) {
	data, err := managerABI.Pack("spend", toTuple(p), value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spend: %w", err)
	}
	return data, nil
}

// packAddOwnerPublicKey encodes owner registration for a 64-byte
// uncompressed public key split into its two coordinates.
func packAddOwnerPublicKey(publicKey []byte) ([]byte, error) {
	if len(publicKey) != 64 {
		return nil, fmt.Errorf("owner public key must be 64 bytes, got %d", len(publicKey))
	}
	var x, y [32]byte
	copy(x[:], publicKey[:32])
	copy(y[:], publicKey[32:])
	data, err := accountABI.Pack("addOwnerPublicKey", x, y)
	if err != nil {
		return nil, fmt.Errorf("failed to encode addOwnerPublicKey: %w", err)
	}
	return data, nil
}

// packAddOwnerAddress encodes owner registration by address.
func packAddOwnerAddress(owner common.Address) ([]byte, error) {
	data, err := accountABI.Pack("addOwnerAddress", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to encode addOwnerAddress: %w", err)
	}
	return data, nil
}
