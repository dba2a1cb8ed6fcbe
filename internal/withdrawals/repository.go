package withdrawals

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

func (r *Repository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return r.client.DB().WithContext(ctx).Create(request).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := r.client.DB().WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetForUpdate row-locks the request so concurrent admin actions serialize.
func (r *Repository) GetForUpdate(tx *gorm.DB, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *Repository) Update(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.Model(&models.WithdrawalRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) InsertTransition(tx *gorm.DB, transition *models.WithdrawalTransition) error {
	return tx.Create(transition).Error
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.WithdrawalRequest
	err := r.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.WithdrawalRequest
	err := r.client.DB().WithContext(ctx).
		Where("status = ?", status).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListTransitions(ctx context.Context, requestID uuid.UUID) ([]models.WithdrawalTransition, error) {
	var rows []models.WithdrawalTransition
	err := r.client.DB().WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
