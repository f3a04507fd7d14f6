package balance

import (
	"fmt"
	"strconv"
)

// BalanceType represents different types of balance-related state keys in the ledger.
type BalanceType byte

// String returns the hexadecimal string representation of the BalanceType.
func (ot BalanceType) String() string {
	return strconv.FormatUint(uint64(ot), 16)
}

// Constants for different BalanceType values representing various balance state keys.
const (
	// Fund accounting.
	BalanceTypeInvestorFunded BalanceType = 0x40 // investor, symbol
	BalanceTypeInvestorTokens BalanceType = 0x41 // investor
	BalanceTypeTotalFunded    BalanceType = 0x42 // symbol
	BalanceTypeTotalReleased  BalanceType = 0x43 // symbol
	BalanceTypeTotalRefunded  BalanceType = 0x44 // symbol
	BalanceTypeRefundPaid     BalanceType = 0x45 // symbol
	BalanceTypeCounter        BalanceType = 0x46 // counter name

	// Asset custody.
	BalanceTypeNative    BalanceType = 0x50 // holder
	BalanceTypeAsset     BalanceType = 0x51 // holder, asset address
	BalanceTypeAllowance BalanceType = 0x52 // holder, asset address
)

var balanceTypeToStringMap = map[BalanceType]string{
	BalanceTypeInvestorFunded: "InvestorFunded",
	BalanceTypeInvestorTokens: "InvestorTokens",
	BalanceTypeTotalFunded:    "TotalFunded",
	BalanceTypeTotalReleased:  "TotalReleased",
	BalanceTypeTotalRefunded:  "TotalRefunded",
	BalanceTypeRefundPaid:     "RefundPaid",
	BalanceTypeCounter:        "Counter",
	BalanceTypeNative:         "Native",
	BalanceTypeAsset:          "Asset",
	BalanceTypeAllowance:      "Allowance",
}

// BalanceTypeToStringMapValue returns string map value of the BalanceType
func BalanceTypeToStringMapValue(ot BalanceType) (string, error) {
	s, ok := balanceTypeToStringMap[ot]
	if !ok {
		return "", fmt.Errorf("unknown BalanceType: %s", ot.String())
	}

	return s, nil
}

// StringToBalanceType converts a string representation of a balance state key to its corresponding BalanceType.
func StringToBalanceType(s string) (BalanceType, error) {
	for ot, name := range balanceTypeToStringMap {
		if name == s {
			return ot, nil
		}
	}

	return 0, fmt.Errorf("unknown BalanceType string: %s", s)
}
