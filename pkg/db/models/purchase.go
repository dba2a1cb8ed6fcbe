package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

// Purchase tracks a credit-pack payment from gateway order creation to
// settlement. GatewayOrderID is the idempotency key: the unique index plus a
// row lock during settlement guarantees at most one credit per order.
type Purchase struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID         string               `gorm:"column:tenant_id;not null;index"`
	PackID           uuid.UUID            `gorm:"column:pack_id;type:uuid;not null"`
	AmountPaise      int64                `gorm:"column:amount_paise;not null"`
	Currency         string               `gorm:"column:currency;not null;default:'INR'"`
	GatewayOrderID   string               `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	GatewayPaymentID *string              `gorm:"column:gateway_payment_id"`
	Status           enums.PurchaseStatus `gorm:"column:status;not null;default:'created'"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
