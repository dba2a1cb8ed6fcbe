package enums

import "fmt"

// PayoutMethod is how an earner wants a withdrawal paid out. The detail
// payload (UPI handle, bank account) is opaque to ledger logic.
type PayoutMethod string

const (
	PayoutMethodUPI  PayoutMethod = "upi"
	PayoutMethodBank PayoutMethod = "bank"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodUPI,
	PayoutMethodBank,
}

// IsValid reports whether the value is a known PayoutMethod.
func (m PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
