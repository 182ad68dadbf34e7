package spend

import (
	"fmt"
	"math/big"
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal ether amount ("0.002") to wei. Fractions
// below 1 wei are rejected rather than truncated.
func ParseEther(amount string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount: %q", amount)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("ether amount must not be negative: %q", amount)
	}
	wei := new(big.Rat).Mul(rat, new(big.Rat).SetInt(weiPerEther))
	if !wei.IsInt() {
		return nil, fmt.Errorf("ether amount has sub-wei precision: %q", amount)
	}
	return wei.Num(), nil
}

// FormatEther renders a wei amount as a decimal ether string, trimming
// trailing zeros.
func FormatEther(wei *big.Int) string {
	rat := new(big.Rat).SetFrac(wei, weiPerEther)
	s := rat.FloatString(18)
	// strip trailing zeros and a dangling decimal point
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
