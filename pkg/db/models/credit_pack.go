package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditPack is a catalog entry describing how many doubts a purchase buys
// and how they split across buckets. The counts must sum to TotalDoubts.
type CreditPack struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	AmountPaise int64     `gorm:"column:amount_paise;not null"`
	Currency    string    `gorm:"column:currency;not null;default:'INR'"`
	TotalDoubts int       `gorm:"column:total_doubts;not null"`
	SmallCount  int       `gorm:"column:small_count;not null;default:0"`
	MediumCount int       `gorm:"column:medium_count;not null;default:0"`
	LargeCount  int       `gorm:"column:large_count;not null;default:0"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
