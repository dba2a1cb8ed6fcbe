package enums

import "fmt"

// WalletEntryType is the business reason for an earner-wallet mutation.
type WalletEntryType string

const (
	WalletEntryTypeEarning WalletEntryType = "earning"
	WalletEntryTypeReserve WalletEntryType = "reserve"
	WalletEntryTypeRelease WalletEntryType = "release"
	WalletEntryTypePayout  WalletEntryType = "payout"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeEarning,
	WalletEntryTypeReserve,
	WalletEntryTypeRelease,
	WalletEntryTypePayout,
}

// IsValid reports whether the value is a known WalletEntryType.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into a WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}
