package debits

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
)

type fakeDebitRepo struct {
	insertFn       func(tx *gorm.DB, event *models.DebitEvent) error
	getByDoubtIDFn func(ctx context.Context, doubtID string) (*models.DebitEvent, error)
}

func (f *fakeDebitRepo) Insert(tx *gorm.DB, event *models.DebitEvent) error {
	if f.insertFn != nil {
		return f.insertFn(tx, event)
	}
	return nil
}

func (f *fakeDebitRepo) GetByDoubtID(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
	return f.getByDoubtIDFn(ctx, doubtID)
}

func (f *fakeDebitRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.DebitEvent, error) {
	return nil, nil
}

type fakeLedgerDebitor struct {
	debits []ledger.DebitParams
	err    error
	read   *models.CreditLedger
}

func (f *fakeLedgerDebitor) Debit(ctx context.Context, tx *gorm.DB, params ledger.DebitParams) (*models.CreditLedger, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.debits = append(f.debits, params)
	return &models.CreditLedger{TenantID: params.TenantID, TotalAvailable: 4, Version: 7}, nil
}

func (f *fakeLedgerDebitor) Read(ctx context.Context, tenantID string) (*models.CreditLedger, error) {
	if f.read != nil {
		return f.read, nil
	}
	return &models.CreditLedger{TenantID: tenantID}, nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func TestChargeDebitsAndRecordsEvent(t *testing.T) {
	var inserted *models.DebitEvent
	repo := &fakeDebitRepo{
		getByDoubtIDFn: func(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
			return nil, gorm.ErrRecordNotFound
		},
		insertFn: func(tx *gorm.DB, event *models.DebitEvent) error {
			inserted = event
			return nil
		},
	}
	debitor := &fakeLedgerDebitor{}
	svc := NewService(repo, debitor, &fakeTxRunner{}, nil)

	result, err := svc.Charge(context.Background(), ChargeParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategoryMedium,
		DoubtID:  "doubt-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadyCharged {
		t.Fatal("first charge must not report a replay")
	}
	if len(debitor.debits) != 1 {
		t.Fatalf("expected exactly one ledger debit, got %d", len(debitor.debits))
	}
	if debitor.debits[0].Amount != 1 {
		t.Fatalf("expected amount 1, got %d", debitor.debits[0].Amount)
	}
	if inserted == nil || inserted.DoubtID != "doubt-42" {
		t.Fatalf("expected debit event recorded, got %+v", inserted)
	}
	if inserted.LedgerVersion != 7 {
		t.Fatalf("expected ledger version snapshot, got %d", inserted.LedgerVersion)
	}
}

func TestChargeSameDoubtTwiceIsIdempotent(t *testing.T) {
	existing := &models.DebitEvent{
		TenantID: "tenant-1",
		Category: enums.DoubtCategorySmall,
		Amount:   1,
		DoubtID:  "doubt-42",
	}
	repo := &fakeDebitRepo{
		getByDoubtIDFn: func(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
			return existing, nil
		},
	}
	debitor := &fakeLedgerDebitor{}
	svc := NewService(repo, debitor, &fakeTxRunner{}, nil)

	result, err := svc.Charge(context.Background(), ChargeParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategorySmall,
		DoubtID:  "doubt-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AlreadyCharged {
		t.Fatal("expected replay to be reported")
	}
	if len(debitor.debits) != 0 {
		t.Fatal("replay must not debit the ledger")
	}
}

func TestChargeInsufficientBucket(t *testing.T) {
	repo := &fakeDebitRepo{
		getByDoubtIDFn: func(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	debitor := &fakeLedgerDebitor{err: errors.New(errors.CodeInsufficientFunds, "not enough large credits")}
	svc := NewService(repo, debitor, &fakeTxRunner{}, nil)

	_, err := svc.Charge(context.Background(), ChargeParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategoryLarge,
		DoubtID:  "doubt-43",
	})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestChargeRaceFallsBackToWinner(t *testing.T) {
	calls := 0
	existing := &models.DebitEvent{TenantID: "tenant-1", DoubtID: "doubt-42", Category: enums.DoubtCategorySmall}
	repo := &fakeDebitRepo{
		getByDoubtIDFn: func(ctx context.Context, doubtID string) (*models.DebitEvent, error) {
			calls++
			if calls == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return existing, nil
		},
		insertFn: func(tx *gorm.DB, event *models.DebitEvent) error {
			return fmt.Errorf("duplicate key value violates unique constraint %q", "idx_debit_events_doubt_id")
		},
	}
	debitor := &fakeLedgerDebitor{}
	svc := NewService(repo, debitor, &fakeTxRunner{}, nil)

	result, err := svc.Charge(context.Background(), ChargeParams{
		TenantID: "tenant-1",
		Category: enums.DoubtCategorySmall,
		DoubtID:  "doubt-42",
	})
	if err != nil {
		t.Fatalf("race loser must answer idempotently, got %v", err)
	}
	if !result.AlreadyCharged {
		t.Fatal("expected replay to be reported")
	}
}
