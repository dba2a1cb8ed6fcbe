package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

// DebitEvent is the append-only record of one doubt charge. DoubtID carries a
// unique index so a retried charge for the same doubt can never decrement the
// ledger twice.
type DebitEvent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      string              `gorm:"column:tenant_id;not null;index"`
	Category      enums.DoubtCategory `gorm:"column:category;not null"`
	Amount        int                 `gorm:"column:amount;not null;default:1"`
	DoubtID       string              `gorm:"column:doubt_id;not null;uniqueIndex"`
	LedgerVersion int64               `gorm:"column:ledger_version;not null;default:0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
