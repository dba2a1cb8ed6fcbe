package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	var pack models.CreditPack
	err := r.client.DB().WithContext(ctx).
		Where("id = ?", id).
		First(&pack).Error
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.CreditPack, error) {
	var packs []models.CreditPack
	err := r.client.DB().WithContext(ctx).
		Where("active = ?", true).
		Order("amount_paise asc").
		Find(&packs).Error
	if err != nil {
		return nil, err
	}
	return packs, nil
}

func (r *Repository) Create(ctx context.Context, pack *models.CreditPack) error {
	return r.client.DB().WithContext(ctx).Create(pack).Error
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.client.DB().WithContext(ctx).
		Model(&models.CreditPack{}).
		Where("id = ?", id).
		Update("active", active).Error
}
