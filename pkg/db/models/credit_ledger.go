package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

// CreditLedger holds one tenant's prepaid doubt-credit buckets. TotalAvailable
// is always written in the same UPDATE as the buckets and Version increments
// on every mutation, so readers never see a partially applied change.
type CreditLedger struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       string    `gorm:"column:tenant_id;not null;uniqueIndex"`
	SmallCredits   int       `gorm:"column:small_credits;not null;default:0"`
	MediumCredits  int       `gorm:"column:medium_credits;not null;default:0"`
	LargeCredits   int       `gorm:"column:large_credits;not null;default:0"`
	TotalAvailable int       `gorm:"column:total_available;not null;default:0"`
	Version        int64     `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Bucket returns the count for a category.
func (l *CreditLedger) Bucket(category enums.DoubtCategory) int {
	switch category {
	case enums.DoubtCategorySmall:
		return l.SmallCredits
	case enums.DoubtCategoryMedium:
		return l.MediumCredits
	case enums.DoubtCategoryLarge:
		return l.LargeCredits
	}
	return 0
}

// SetBucket overwrites the count for a category.
func (l *CreditLedger) SetBucket(category enums.DoubtCategory, count int) {
	switch category {
	case enums.DoubtCategorySmall:
		l.SmallCredits = count
	case enums.DoubtCategoryMedium:
		l.MediumCredits = count
	case enums.DoubtCategoryLarge:
		l.LargeCredits = count
	}
}

// Buckets returns the category counts as a map.
func (l *CreditLedger) Buckets() map[enums.DoubtCategory]int {
	return map[enums.DoubtCategory]int{
		enums.DoubtCategorySmall:  l.SmallCredits,
		enums.DoubtCategoryMedium: l.MediumCredits,
		enums.DoubtCategoryLarge:  l.LargeCredits,
	}
}

// SumBuckets recomputes the derived total from the buckets.
func (l *CreditLedger) SumBuckets() int {
	return l.SmallCredits + l.MediumCredits + l.LargeCredits
}
