package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

// Wallet is an earner's payable balance, distinct from the tenant credit
// ledger. ReservedPaise soft-locks amounts behind approved withdrawals so
// available spend is always BalancePaise - ReservedPaise.
type Wallet struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BalancePaise  int64     `gorm:"column:balance_paise;not null;default:0"`
	ReservedPaise int64     `gorm:"column:reserved_paise;not null;default:0"`
	Version       int64     `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailablePaise is the spendable balance after reservations.
func (w *Wallet) AvailablePaise() int64 {
	return w.BalancePaise - w.ReservedPaise
}

// WalletEntry is the append-only audit row for every wallet mutation.
type WalletEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type        enums.WalletEntryType `gorm:"column:type;not null"`
	AmountPaise int64                 `gorm:"column:amount_paise;not null"`
	Reference   string                `gorm:"column:reference;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
