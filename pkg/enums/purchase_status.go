package enums

import "fmt"

// PurchaseStatus tracks the lifecycle of a credit-pack purchase.
type PurchaseStatus string

const (
	PurchaseStatusCreated  PurchaseStatus = "created"
	PurchaseStatusVerified PurchaseStatus = "verified"
	PurchaseStatusCredited PurchaseStatus = "credited"
	PurchaseStatusFailed   PurchaseStatus = "failed"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusCreated,
	PurchaseStatusVerified,
	PurchaseStatusCredited,
	PurchaseStatusFailed,
}

// String implements fmt.Stringer.
func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
