package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type fakeWalletRepo struct {
	getForUpdateFn func(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error)
	createFn       func(tx *gorm.DB, wallet *models.Wallet) error
	saveFn         func(tx *gorm.DB, wallet *models.Wallet) error
	entries        []models.WalletEntry
}

func (f *fakeWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWalletRepo) GetForUpdate(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	return f.getForUpdateFn(tx, userID)
}

func (f *fakeWalletRepo) Create(tx *gorm.DB, wallet *models.Wallet) error {
	if f.createFn != nil {
		return f.createFn(tx, wallet)
	}
	return nil
}

func (f *fakeWalletRepo) Save(tx *gorm.DB, wallet *models.Wallet) error {
	if f.saveFn != nil {
		return f.saveFn(tx, wallet)
	}
	return nil
}

func (f *fakeWalletRepo) InsertEntry(tx *gorm.DB, entry *models.WalletEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeWalletRepo) ListEntries(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	return f.entries, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func TestCreditEarningCreatesWallet(t *testing.T) {
	userID := uuid.New()
	repo := &fakeWalletRepo{
		getForUpdateFn: func(tx *gorm.DB, id uuid.UUID) (*models.Wallet, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	emitter := &fakeEmitter{}
	svc := &Service{repo: repo, bus: emitter}

	wallet, err := svc.CreditEarning(context.Background(), &gorm.DB{}, MutationParams{
		UserID:      userID,
		AmountPaise: 2500,
		Reference:   "doubt-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.BalancePaise != 2500 || wallet.Version != 1 {
		t.Fatalf("unexpected wallet: %+v", wallet)
	}
	if len(repo.entries) != 1 || repo.entries[0].Type != enums.WalletEntryTypeEarning {
		t.Fatalf("expected earning entry, got %+v", repo.entries)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
}

func TestReserveRejectsOverdraw(t *testing.T) {
	repo := &fakeWalletRepo{
		getForUpdateFn: func(tx *gorm.DB, id uuid.UUID) (*models.Wallet, error) {
			return &models.Wallet{UserID: id, BalancePaise: 1000, ReservedPaise: 800, Version: 3}, nil
		},
	}
	svc := &Service{repo: repo, bus: &fakeEmitter{}}

	_, err := svc.Reserve(context.Background(), &gorm.DB{}, MutationParams{
		UserID:      uuid.New(),
		AmountPaise: 500,
		Reference:   "wd-1",
	})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatal("no entry must be written on a failed reserve")
	}
}

func TestPayoutConsumesReservation(t *testing.T) {
	repo := &fakeWalletRepo{
		getForUpdateFn: func(tx *gorm.DB, id uuid.UUID) (*models.Wallet, error) {
			return &models.Wallet{UserID: id, BalancePaise: 1000, ReservedPaise: 600, Version: 5}, nil
		},
	}
	emitter := &fakeEmitter{}
	svc := &Service{repo: repo, bus: emitter}

	wallet, err := svc.Payout(context.Background(), &gorm.DB{}, MutationParams{
		UserID:      uuid.New(),
		AmountPaise: 600,
		Reference:   "wd-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.BalancePaise != 400 || wallet.ReservedPaise != 0 {
		t.Fatalf("unexpected wallet after payout: %+v", wallet)
	}
	if wallet.Version != 6 {
		t.Fatalf("expected version bump, got %d", wallet.Version)
	}
	payload, ok := emitter.events[0].Data.(outbox.WalletChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", emitter.events[0].Data)
	}
	if payload.AvailablePaise != 400 {
		t.Fatalf("unexpected available: %+v", payload)
	}
}

func TestReleaseGuardsReservedFloor(t *testing.T) {
	repo := &fakeWalletRepo{
		getForUpdateFn: func(tx *gorm.DB, id uuid.UUID) (*models.Wallet, error) {
			return &models.Wallet{UserID: id, BalancePaise: 1000, ReservedPaise: 100}, nil
		},
	}
	svc := &Service{repo: repo, bus: &fakeEmitter{}}

	_, err := svc.Release(context.Background(), &gorm.DB{}, MutationParams{
		UserID:      uuid.New(),
		AmountPaise: 200,
		Reference:   "wd-1",
	})
	if !errors.HasCode(err, errors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
