package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

// WithdrawalRequest is an earner's cash-out request moving through
// pending -> approved -> disbursed, or pending -> rejected.
type WithdrawalRequest struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	AmountPaise  int64                  `gorm:"column:amount_paise;not null"`
	PayoutMethod enums.PayoutMethod     `gorm:"column:payout_method;not null"`
	PayoutDetail string                 `gorm:"column:payout_detail;not null"`
	Status       enums.WithdrawalStatus `gorm:"column:status;not null;default:'pending';index"`
	AdminNotes   *string                `gorm:"column:admin_notes"`
	ApprovedBy   *uuid.UUID             `gorm:"column:approved_by;type:uuid"`
	DisbursedAt  *time.Time             `gorm:"column:disbursed_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// WithdrawalTransition records who moved a request between states and when.
// Rows are append-only; notes edits on terminal requests land here too.
type WithdrawalTransition struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID   uuid.UUID              `gorm:"column:request_id;type:uuid;not null;index"`
	FromStatus  enums.WithdrawalStatus `gorm:"column:from_status;not null"`
	ToStatus    enums.WithdrawalStatus `gorm:"column:to_status;not null"`
	ActorUserID uuid.UUID              `gorm:"column:actor_user_id;type:uuid;not null"`
	Notes       *string                `gorm:"column:notes"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
