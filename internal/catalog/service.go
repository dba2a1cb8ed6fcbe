package catalog

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type packRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.CreditPack, error)
	ListActive(ctx context.Context) ([]models.CreditPack, error)
	Create(ctx context.Context, pack *models.CreditPack) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service manages the purchasable credit pack catalog.
type Service struct {
	repo packRepository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// CreatePackParams describes a new pack. The per-category counts must add up
// to TotalDoubts so a settled purchase credits exactly what was sold.
type CreatePackParams struct {
	Name        string
	AmountPaise int64
	Currency    string
	TotalDoubts int
	SmallCount  int
	MediumCount int
	LargeCount  int
}

func (s *Service) ListActive(ctx context.Context) ([]models.CreditPack, error) {
	packs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing packs")
	}
	return packs, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	pack, err := s.repo.Get(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "credit pack not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading pack")
	}
	return pack, nil
}

// GetPurchasable loads a pack and rejects inactive ones.
func (s *Service) GetPurchasable(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	pack, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pack.Active {
		return nil, errors.New(errors.CodeStateConflict, "credit pack is no longer on sale")
	}
	return pack, nil
}

func (s *Service) Create(ctx context.Context, params CreatePackParams) (*models.CreditPack, error) {
	if params.Name == "" {
		return nil, errors.New(errors.CodeValidation, "name is required")
	}
	if params.AmountPaise <= 0 {
		return nil, errors.New(errors.CodeValidation, "amountPaise must be positive")
	}
	if params.SmallCount < 0 || params.MediumCount < 0 || params.LargeCount < 0 {
		return nil, errors.New(errors.CodeValidation, "bucket counts must not be negative")
	}
	if sum := params.SmallCount + params.MediumCount + params.LargeCount; sum != params.TotalDoubts {
		return nil, errors.New(errors.CodeValidation, "bucket counts must add up to totalDoubts").
			WithDetails(map[string]any{"totalDoubts": params.TotalDoubts, "bucketSum": sum})
	}
	if params.Currency == "" {
		params.Currency = "INR"
	}

	pack := &models.CreditPack{
		Name:        params.Name,
		AmountPaise: params.AmountPaise,
		Currency:    params.Currency,
		TotalDoubts: params.TotalDoubts,
		SmallCount:  params.SmallCount,
		MediumCount: params.MediumCount,
		LargeCount:  params.LargeCount,
		Active:      true,
	}
	if err := s.repo.Create(ctx, pack); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating pack")
	}

	if s.logg != nil {
		fields := map[string]any{"pack_id": pack.ID, "amount_paise": pack.AmountPaise}
		s.logg.Info(s.logg.WithFields(ctx, fields), "credit pack created")
	}
	return pack, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "deactivating pack")
	}
	return nil
}
