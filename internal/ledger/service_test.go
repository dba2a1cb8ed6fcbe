package ledger

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type fakeLedgerRepo struct {
	getFn          func(ctx context.Context, tenantID string) (*models.CreditLedger, error)
	getForUpdateFn func(tx *gorm.DB, tenantID string) (*models.CreditLedger, error)
	createFn       func(tx *gorm.DB, ledger *models.CreditLedger) error
	saveFn         func(tx *gorm.DB, ledger *models.CreditLedger) error
}

func (f *fakeLedgerRepo) Get(ctx context.Context, tenantID string) (*models.CreditLedger, error) {
	return f.getFn(ctx, tenantID)
}

func (f *fakeLedgerRepo) GetForUpdate(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
	return f.getForUpdateFn(tx, tenantID)
}

func (f *fakeLedgerRepo) Create(tx *gorm.DB, ledger *models.CreditLedger) error {
	if f.createFn != nil {
		return f.createFn(tx, ledger)
	}
	return nil
}

func (f *fakeLedgerRepo) Save(tx *gorm.DB, ledger *models.CreditLedger) error {
	if f.saveFn != nil {
		return f.saveFn(tx, ledger)
	}
	return nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func TestCreditNewTenantCreatesLedger(t *testing.T) {
	var created *models.CreditLedger
	repo := &fakeLedgerRepo{
		getForUpdateFn: func(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(tx *gorm.DB, ledger *models.CreditLedger) error {
			created = ledger
			return nil
		},
	}
	emitter := &fakeEmitter{}
	svc := &Service{repo: repo, bus: emitter}

	ledger, err := svc.Credit(context.Background(), &gorm.DB{}, CreditParams{
		TenantID: "tenant-1",
		Additions: map[enums.DoubtCategory]int{
			enums.DoubtCategorySmall: 10,
			enums.DoubtCategoryLarge: 2,
		},
		Reason: "purchase.settled",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger row to be created")
	}
	if ledger.SmallCredits != 10 || ledger.MediumCredits != 0 || ledger.LargeCredits != 2 {
		t.Fatalf("unexpected buckets: %+v", ledger)
	}
	if ledger.TotalAvailable != 12 {
		t.Fatalf("expected total 12, got %d", ledger.TotalAvailable)
	}
	if ledger.Version != 1 {
		t.Fatalf("expected version 1, got %d", ledger.Version)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
	payload, ok := emitter.events[0].Data.(outbox.BalanceChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", emitter.events[0].Data)
	}
	if payload.Version != 1 || payload.TotalAvailable != 12 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCreditRejectsNegativeAdditions(t *testing.T) {
	svc := &Service{repo: &fakeLedgerRepo{}, bus: &fakeEmitter{}}

	_, err := svc.Credit(context.Background(), &gorm.DB{}, CreditParams{
		TenantID:  "tenant-1",
		Additions: map[enums.DoubtCategory]int{enums.DoubtCategorySmall: -1},
	})
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDebitDecrementsOnlyTargetBucket(t *testing.T) {
	repo := &fakeLedgerRepo{
		getForUpdateFn: func(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
			return &models.CreditLedger{
				TenantID:       tenantID,
				SmallCredits:   3,
				MediumCredits:  5,
				LargeCredits:   1,
				TotalAvailable: 9,
				Version:        4,
			}, nil
		},
	}
	emitter := &fakeEmitter{}
	svc := &Service{repo: repo, bus: emitter}

	ledger, err := svc.Debit(context.Background(), &gorm.DB{}, DebitParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategoryMedium,
		Reason:   "doubt.charged",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.MediumCredits != 4 {
		t.Fatalf("expected medium 4, got %d", ledger.MediumCredits)
	}
	if ledger.SmallCredits != 3 || ledger.LargeCredits != 1 {
		t.Fatalf("other buckets changed: %+v", ledger)
	}
	if ledger.TotalAvailable != 8 {
		t.Fatalf("expected total 8, got %d", ledger.TotalAvailable)
	}
	if ledger.Version != 5 {
		t.Fatalf("expected version 5, got %d", ledger.Version)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
}

func TestDebitEmptyBucketFails(t *testing.T) {
	saved := false
	repo := &fakeLedgerRepo{
		getForUpdateFn: func(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
			return &models.CreditLedger{TenantID: tenantID, SmallCredits: 2, TotalAvailable: 2, Version: 1}, nil
		},
		saveFn: func(tx *gorm.DB, ledger *models.CreditLedger) error {
			saved = true
			return nil
		},
	}
	emitter := &fakeEmitter{}
	svc := &Service{repo: repo, bus: emitter}

	_, err := svc.Debit(context.Background(), &gorm.DB{}, DebitParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategoryLarge,
	})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if saved {
		t.Fatal("ledger must not be saved on a failed debit")
	}
	if len(emitter.events) != 0 {
		t.Fatal("no event should be emitted on a failed debit")
	}
}

func TestDebitUnknownTenantFailsInsufficient(t *testing.T) {
	repo := &fakeLedgerRepo{
		getForUpdateFn: func(tx *gorm.DB, tenantID string) (*models.CreditLedger, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := &Service{repo: repo, bus: &fakeEmitter{}}

	_, err := svc.Debit(context.Background(), &gorm.DB{}, DebitParams{
		TenantID: "ghost",
		Category: enums.DoubtCategorySmall,
	})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestReadUnknownTenantReturnsZeroLedger(t *testing.T) {
	repo := &fakeLedgerRepo{
		getFn: func(ctx context.Context, tenantID string) (*models.CreditLedger, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := &Service{repo: repo, bus: &fakeEmitter{}}

	ledger, err := svc.Read(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.TotalAvailable != 0 || ledger.Version != 0 {
		t.Fatalf("expected zero ledger, got %+v", ledger)
	}
	if ledger.TenantID != "ghost" {
		t.Fatalf("expected tenant id to be echoed, got %q", ledger.TenantID)
	}
}
