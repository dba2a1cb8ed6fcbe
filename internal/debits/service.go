package debits

import (
	"context"
	stdErrors "errors"

	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

// Must match the unique index on debit_events.doubt_id created by the
// migrations and the model tag.
const doubtUniqueConstraint = "idx_debit_events_doubt_id"

type debitRepository interface {
	Insert(tx *gorm.DB, event *models.DebitEvent) error
	GetByDoubtID(ctx context.Context, doubtID string) (*models.DebitEvent, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.DebitEvent, error)
}

type ledgerDebitor interface {
	Debit(ctx context.Context, tx *gorm.DB, params ledger.DebitParams) (*models.CreditLedger, error)
	Read(ctx context.Context, tenantID string) (*models.CreditLedger, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service charges a tenant's ledger when a doubt is raised. The doubt id is
// the idempotency key: a retried charge for the same doubt answers from the
// recorded debit instead of decrementing again.
type Service struct {
	repo   debitRepository
	ledger ledgerDebitor
	tx     txRunner
	logg   *logger.Logger
}

func NewService(repo debitRepository, ledgerSvc ledgerDebitor, tx txRunner, logg *logger.Logger) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, tx: tx, logg: logg}
}

// ChargeParams identifies the doubt being charged.
type ChargeParams struct {
	TenantID string
	Category enums.DoubtCategory
	DoubtID  string
	Actor    *outbox.ActorRef
}

// ChargeResult reports the post-charge state. AlreadyCharged marks a retry
// that was answered from the existing debit record.
type ChargeResult struct {
	Debit          *models.DebitEvent
	Ledger         *models.CreditLedger
	AlreadyCharged bool
}

// Charge decrements one credit from the category's bucket and records the
// debit, all in one transaction. An underfunded bucket fails with
// INSUFFICIENT_FUNDS and leaves the ledger untouched.
func (s *Service) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	if params.TenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	if params.DoubtID == "" {
		return nil, errors.New(errors.CodeValidation, "doubtId is required")
	}
	if !params.Category.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown doubt category")
	}

	if existing, err := s.repo.GetByDoubtID(ctx, params.DoubtID); err == nil {
		return s.replay(ctx, existing)
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking debit history")
	}

	var result ChargeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.ledger.Debit(ctx, tx, ledger.DebitParams{
			TenantID: params.TenantID,
			Category: params.Category,
			Amount:   1,
			Reason:   "doubt.charged",
			Actor:    params.Actor,
		})
		if err != nil {
			return err
		}

		event := &models.DebitEvent{
			TenantID:      params.TenantID,
			Category:      params.Category,
			Amount:        1,
			DoubtID:       params.DoubtID,
			LedgerVersion: updated.Version,
		}
		if err := s.repo.Insert(tx, event); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording debit")
		}

		result.Debit = event
		result.Ledger = updated
		return nil
	})
	if err != nil {
		// A concurrent charge for the same doubt won the race. The unique
		// index rolled this attempt back, so answer from the winner's record.
		if db.IsUniqueViolation(stdErrors.Unwrap(err), doubtUniqueConstraint) || db.IsUniqueViolation(err, doubtUniqueConstraint) {
			existing, lookupErr := s.repo.GetByDoubtID(ctx, params.DoubtID)
			if lookupErr == nil {
				return s.replay(ctx, existing)
			}
		}
		return nil, err
	}

	if s.logg != nil {
		fields := map[string]any{
			"tenant_id": params.TenantID,
			"doubt_id":  params.DoubtID,
			"category":  params.Category,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "doubt charged")
	}
	return &result, nil
}

// ListByTenant returns the tenant's recent debits, newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.DebitEvent, error) {
	if tenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	rows, err := s.repo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing debits")
	}
	return rows, nil
}

func (s *Service) replay(ctx context.Context, existing *models.DebitEvent) (*ChargeResult, error) {
	snapshot, err := s.ledger.Read(ctx, existing.TenantID)
	if err != nil {
		return nil, err
	}
	return &ChargeResult{Debit: existing, Ledger: snapshot, AlreadyCharged: true}, nil
}
