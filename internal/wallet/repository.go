package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetForUpdate loads and row-locks the earner's wallet inside tx.
func (r *Repository) GetForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *Repository) Create(tx *gorm.DB, wallet *models.Wallet) error {
	return tx.Create(wallet).Error
}

func (r *Repository) Save(tx *gorm.DB, wallet *models.Wallet) error {
	return tx.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]any{
			"balance_paise":  wallet.BalancePaise,
			"reserved_paise": wallet.ReservedPaise,
			"version":        wallet.Version,
		}).Error
}

func (r *Repository) InsertEntry(tx *gorm.DB, entry *models.WalletEntry) error {
	return tx.Create(entry).Error
}

func (r *Repository) ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.WalletEntry
	err := r.client.DB().WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
