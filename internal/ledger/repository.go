package ledger

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

// Repository persists credit ledgers. Mutations go through GetForUpdate so
// each tenant row has a single writer at a time.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// Get loads a tenant's ledger without locking. Returns gorm.ErrRecordNotFound
// when the tenant has never been credited.
func (r *Repository) Get(ctx context.Context, tenantID string) (*models.CreditLedger, error) {
	var ledger models.CreditLedger
	err := r.client.DB().WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// GetForUpdate loads and row-locks a tenant's ledger inside tx.
func (r *Repository) GetForUpdate(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
	var ledger models.CreditLedger
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("tenant_id = ?", tenantID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Create inserts a fresh ledger row inside tx.
func (r *Repository) Create(tx *gorm.DB, ledger *models.CreditLedger) error {
	return tx.Create(ledger).Error
}

// Save writes the mutated buckets, total and version inside tx.
func (r *Repository) Save(tx *gorm.DB, ledger *models.CreditLedger) error {
	return tx.Model(&models.CreditLedger{}).
		Where("id = ?", ledger.ID).
		Updates(map[string]any{
			"small_credits":   ledger.SmallCredits,
			"medium_credits":  ledger.MediumCredits,
			"large_credits":   ledger.LargeCredits,
			"total_available": ledger.TotalAvailable,
			"version":         ledger.Version,
		}).Error
}
