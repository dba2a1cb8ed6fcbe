package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type ledgerRepository interface {
	Get(ctx context.Context, tenantID string) (*models.CreditLedger, error)
	GetForUpdate(tx *gorm.DB, tenantID string) (*models.CreditLedger, error)
	Create(tx *gorm.DB, ledger *models.CreditLedger) error
	Save(tx *gorm.DB, ledger *models.CreditLedger) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns all mutations of tenant credit ledgers. Every mutation happens
// under a row lock, bumps the version exactly once and queues a
// balance.changed event in the same transaction.
type Service struct {
	repo ledgerRepository
	bus  eventEmitter
	logg *logger.Logger
}

func NewService(repo *Repository, bus *outbox.Service, logg *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, logg: logg}
}

// CreditParams describes a bucket top-up, usually from a settled purchase.
type CreditParams struct {
	TenantID  string
	Additions map[enums.DoubtCategory]int
	Reason    string
	Actor     *outbox.ActorRef
}

// DebitParams describes a single-bucket deduction.
type DebitParams struct {
	TenantID string
	Category enums.DoubtCategory
	Amount   int
	Reason   string
	Actor    *outbox.ActorRef
}

// Read returns the current snapshot for a tenant. Tenants that were never
// credited read as an all-zero ledger at version 0.
func (s *Service) Read(ctx context.Context, tenantID string) (*models.CreditLedger, error) {
	if tenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	ledger, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return &models.CreditLedger{TenantID: tenantID}, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "reading ledger")
	}
	return ledger, nil
}

// Credit adds counts to one or more buckets inside the caller's transaction.
// The ledger row is created on first credit.
func (s *Service) Credit(ctx context.Context, tx *gorm.DB, params CreditParams) (*models.CreditLedger, error) {
	if err := validateCredit(params); err != nil {
		return nil, err
	}

	ledger, err := s.lockOrCreate(tx, params.TenantID)
	if err != nil {
		return nil, err
	}

	for category, count := range params.Additions {
		ledger.SetBucket(category, ledger.Bucket(category)+count)
	}
	ledger.TotalAvailable = ledger.SumBuckets()
	ledger.Version++

	if err := s.repo.Save(tx, ledger); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving ledger")
	}
	if err := s.emitChanged(ctx, tx, ledger, params.Reason, params.Actor); err != nil {
		return nil, err
	}

	s.logMutation(ctx, ledger, "ledger credited")
	return ledger, nil
}

// Debit removes counts from one bucket inside the caller's transaction. A
// missing ledger row or an underfunded bucket both fail with
// INSUFFICIENT_FUNDS and leave nothing modified.
func (s *Service) Debit(ctx context.Context, tx *gorm.DB, params DebitParams) (*models.CreditLedger, error) {
	if params.Amount <= 0 {
		params.Amount = 1
	}
	if params.TenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	if !params.Category.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown doubt category %q", params.Category))
	}

	ledger, err := s.repo.GetForUpdate(tx, params.TenantID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, insufficient(params.Category, 0, params.Amount)
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "locking ledger")
	}

	have := ledger.Bucket(params.Category)
	if have < params.Amount {
		return nil, insufficient(params.Category, have, params.Amount)
	}

	ledger.SetBucket(params.Category, have-params.Amount)
	ledger.TotalAvailable = ledger.SumBuckets()
	ledger.Version++

	if err := s.repo.Save(tx, ledger); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving ledger")
	}
	if err := s.emitChanged(ctx, tx, ledger, params.Reason, params.Actor); err != nil {
		return nil, err
	}

	s.logMutation(ctx, ledger, "ledger debited")
	return ledger, nil
}

func (s *Service) lockOrCreate(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
	ledger, err := s.repo.GetForUpdate(tx, tenantID)
	if err == nil {
		return ledger, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking ledger")
	}

	fresh := &models.CreditLedger{TenantID: tenantID}
	if err := s.repo.Create(tx, fresh); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating ledger")
	}
	return fresh, nil
}

func (s *Service) emitChanged(ctx context.Context, tx *gorm.DB, ledger *models.CreditLedger, reason string, actor *outbox.ActorRef) error {
	buckets := make(map[string]int, 3)
	for category, count := range ledger.Buckets() {
		buckets[string(category)] = count
	}
	event := outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeBalanceChanged,
		AggregateType: enums.OutboxAggregateTypeLedger,
		AggregateID:   ledger.TenantID,
		Actor:         actor,
		Version:       1,
		OccurredAt:    time.Now(),
		Data: outbox.BalanceChangedPayload{
			TenantID:       ledger.TenantID,
			Buckets:        buckets,
			TotalAvailable: ledger.TotalAvailable,
			Version:        ledger.Version,
			Reason:         reason,
		},
	}
	if err := s.bus.Emit(ctx, tx, event); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "queueing balance event")
	}
	return nil
}

func (s *Service) logMutation(ctx context.Context, ledger *models.CreditLedger, msg string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"tenant_id":       ledger.TenantID,
		"total_available": ledger.TotalAvailable,
		"version":         ledger.Version,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func validateCredit(params CreditParams) error {
	if params.TenantID == "" {
		return errors.New(errors.CodeValidation, "tenantId is required")
	}
	if len(params.Additions) == 0 {
		return errors.New(errors.CodeValidation, "at least one bucket addition is required")
	}
	for category, count := range params.Additions {
		if !category.IsValid() {
			return errors.New(errors.CodeValidation, fmt.Sprintf("unknown doubt category %q", category))
		}
		if count < 0 {
			return errors.New(errors.CodeValidation, "bucket additions must not be negative")
		}
	}
	return nil
}

func insufficient(category enums.DoubtCategory, have, want int) error {
	return errors.New(errors.CodeInsufficientFunds, fmt.Sprintf("not enough %s credits", category)).
		WithDetails(map[string]any{
			"category":  category,
			"available": have,
			"required":  want,
		})
}
