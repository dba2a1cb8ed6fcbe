package debits

import (
	"context"

	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) Insert(tx *gorm.DB, event *models.DebitEvent) error {
	return tx.Create(event).Error
}

func (r *Repository) GetByDoubtID(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
	var event models.DebitEvent
	err := r.client.DB().WithContext(ctx).
		Where("doubt_id = ?", doubtID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.DebitEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.DebitEvent
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
