package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits 最小单位转成带小数的字符串，例如 1500000 (6 位) -> "1.5"
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
