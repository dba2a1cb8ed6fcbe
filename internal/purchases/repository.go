package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
)

type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.client.DB().WithContext(ctx).Create(purchase).Error
}

// GetByOrderIDForUpdate row-locks the purchase for the given gateway order so
// concurrent settlement callbacks serialize on it.
func (r *Repository) GetByOrderIDForUpdate(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *Repository) UpdateStatus(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, gatewayPaymentID *string) error {
	updates := map[string]any{"status": status}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	return tx.Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.Purchase
	err := r.client.DB().WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
