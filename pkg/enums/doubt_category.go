package enums

import "fmt"

// DoubtCategory names a sub-balance bucket in a tenant's credit ledger.
type DoubtCategory string

const (
	DoubtCategorySmall  DoubtCategory = "small"
	DoubtCategoryMedium DoubtCategory = "medium"
	DoubtCategoryLarge  DoubtCategory = "large"
)

var validDoubtCategories = []DoubtCategory{
	DoubtCategorySmall,
	DoubtCategoryMedium,
	DoubtCategoryLarge,
}

// DoubtCategories returns every bucket in canonical order.
func DoubtCategories() []DoubtCategory {
	return validDoubtCategories
}

// String implements fmt.Stringer.
func (c DoubtCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known DoubtCategory.
func (c DoubtCategory) IsValid() bool {
	for _, candidate := range validDoubtCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseDoubtCategory converts raw input into a DoubtCategory.
func ParseDoubtCategory(value string) (DoubtCategory, error) {
	for _, candidate := range validDoubtCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid doubt category %q", value)
}
