package wallet

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type walletRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	Create(tx *gorm.DB, wallet *models.Wallet) error
	Save(tx *gorm.DB, wallet *models.Wallet) error
	InsertEntry(tx *gorm.DB, entry *models.WalletEntry) error
	ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns earner wallet balances. Every mutation happens under a row
// lock, appends an audit entry and queues a wallet.changed event in the same
// transaction. ReservedPaise soft-locks funds behind approved withdrawals.
type Service struct {
	repo walletRepository
	bus  eventEmitter
	logg *logger.Logger
}

func NewService(repo *Repository, bus *outbox.Service, logg *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, logg: logg}
}

// MutationParams describes one wallet movement. Reference ties the entry back
// to the originating record (doubt id, withdrawal id).
type MutationParams struct {
	UserID      uuid.UUID
	AmountPaise int64
	Reference   string
	Actor       *outbox.ActorRef
}

// Read returns the wallet snapshot. Earners without a wallet yet read as an
// all-zero wallet.
func (s *Service) Read(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "userId is required")
	}
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Wallet{UserID: userID}, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "reading wallet")
	}
	return wallet, nil
}

// CreditEarning adds an answered doubt's payout share to the earner's
// balance. The wallet row is created on first earning.
func (s *Service) CreditEarning(ctx context.Context, tx *gorm.DB, params MutationParams) (*models.Wallet, error) {
	if err := validateMutation(params); err != nil {
		return nil, err
	}

	wallet, err := s.lockOrCreate(tx, params.UserID)
	if err != nil {
		return nil, err
	}

	wallet.BalancePaise += params.AmountPaise
	wallet.Version++
	return s.commit(ctx, tx, wallet, enums.WalletEntryTypeEarning, params, "wallet.earning")
}

// Reserve soft-locks funds behind an approved withdrawal. Fails with
// INSUFFICIENT_FUNDS when the available balance cannot cover the amount.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, params MutationParams) (*models.Wallet, error) {
	if err := validateMutation(params); err != nil {
		return nil, err
	}

	wallet, err := s.repo.GetForUpdate(tx, params.UserID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, insufficientEarnings(0, params.AmountPaise)
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "locking wallet")
	}

	if wallet.AvailablePaise() < params.AmountPaise {
		return nil, insufficientEarnings(wallet.AvailablePaise(), params.AmountPaise)
	}

	wallet.ReservedPaise += params.AmountPaise
	wallet.Version++
	return s.commit(ctx, tx, wallet, enums.WalletEntryTypeReserve, params, "wallet.reserved")
}

// Release returns a reservation to the available balance after a rejection.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, params MutationParams) (*models.Wallet, error) {
	if err := validateMutation(params); err != nil {
		return nil, err
	}

	wallet, err := s.repo.GetForUpdate(tx, params.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking wallet")
	}
	if wallet.ReservedPaise < params.AmountPaise {
		return nil, errors.New(errors.CodeStateConflict, "release exceeds reserved funds")
	}

	wallet.ReservedPaise -= params.AmountPaise
	wallet.Version++
	return s.commit(ctx, tx, wallet, enums.WalletEntryTypeRelease, params, "wallet.released")
}

// Payout removes disbursed funds from both the balance and the reservation.
func (s *Service) Payout(ctx context.Context, tx *gorm.DB, params MutationParams) (*models.Wallet, error) {
	if err := validateMutation(params); err != nil {
		return nil, err
	}

	wallet, err := s.repo.GetForUpdate(tx, params.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking wallet")
	}
	if wallet.ReservedPaise < params.AmountPaise || wallet.BalancePaise < params.AmountPaise {
		return nil, errors.New(errors.CodeStateConflict, "payout exceeds reserved funds")
	}

	wallet.ReservedPaise -= params.AmountPaise
	wallet.BalancePaise -= params.AmountPaise
	wallet.Version++
	return s.commit(ctx, tx, wallet, enums.WalletEntryTypePayout, params, "wallet.paid_out")
}

// Entries lists the wallet's recent audit entries, newest first.
func (s *Service) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	wallet, err := s.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.ID == uuid.Nil {
		return nil, nil
	}
	rows, err := s.repo.ListEntries(ctx, wallet.ID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing wallet entries")
	}
	return rows, nil
}

func (s *Service) lockOrCreate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.GetForUpdate(tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "locking wallet")
	}

	fresh := &models.Wallet{UserID: userID}
	if err := s.repo.Create(tx, fresh); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating wallet")
	}
	return fresh, nil
}

func (s *Service) commit(ctx context.Context, tx *gorm.DB, wallet *models.Wallet, entryType enums.WalletEntryType, params MutationParams, reason string) (*models.Wallet, error) {
	if err := s.repo.Save(tx, wallet); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving wallet")
	}

	entry := &models.WalletEntry{
		WalletID:    wallet.ID,
		Type:        entryType,
		AmountPaise: params.AmountPaise,
		Reference:   params.Reference,
	}
	if err := s.repo.InsertEntry(tx, entry); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording wallet entry")
	}

	event := outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeWalletChanged,
		AggregateType: enums.OutboxAggregateTypeWallet,
		AggregateID:   wallet.UserID.String(),
		Actor:         params.Actor,
		Version:       1,
		OccurredAt:    time.Now(),
		Data: outbox.WalletChangedPayload{
			UserID:         wallet.UserID.String(),
			BalancePaise:   wallet.BalancePaise,
			ReservedPaise:  wallet.ReservedPaise,
			AvailablePaise: wallet.AvailablePaise(),
			Version:        wallet.Version,
			Reason:         reason,
		},
	}
	if err := s.bus.Emit(ctx, tx, event); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "queueing wallet event")
	}

	if s.logg != nil {
		fields := map[string]any{
			"user_id":   wallet.UserID,
			"entry":     entryType,
			"version":   wallet.Version,
			"reference": params.Reference,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "wallet mutated")
	}
	return wallet, nil
}

func validateMutation(params MutationParams) error {
	if params.UserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "userId is required")
	}
	if params.AmountPaise <= 0 {
		return errors.New(errors.CodeValidation, "amountPaise must be positive")
	}
	if params.Reference == "" {
		return errors.New(errors.CodeValidation, "reference is required")
	}
	return nil
}

func insufficientEarnings(available, required int64) error {
	return errors.New(errors.CodeInsufficientFunds, "not enough withdrawable earnings").
		WithDetails(map[string]any{
			"available_paise": available,
			"required_paise":  required,
		})
}
