package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func TestRecordEarningFundsWallet(t *testing.T) {
	repo := &fakeWalletRepo{
		getForUpdateFn: func(tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	bus := &fakeEmitter{}
	svc := &Service{repo: repo, bus: bus}
	earnings := &Earnings{wallets: svc, tx: &fakeTxRunner{}}

	solverID := uuid.New()
	wallet, err := earnings.Record(context.Background(), EarningParams{
		SolverID:    solverID,
		AmountPaise: 2500,
		DoubtID:     "doubt-789",
	})
	if err != nil {
		t.Fatalf("record earning: %v", err)
	}
	if wallet.BalancePaise != 2500 {
		t.Fatalf("expected balance 2500, got %d", wallet.BalancePaise)
	}
	if len(repo.entries) != 1 || repo.entries[0].Reference != "doubt-789" {
		t.Fatalf("expected entry referencing the doubt, got %+v", repo.entries)
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected one wallet event, got %d", len(bus.events))
	}
}

func TestRecordEarningRequiresDoubtID(t *testing.T) {
	earnings := &Earnings{wallets: &Service{}, tx: &fakeTxRunner{}}

	_, err := earnings.Record(context.Background(), EarningParams{
		SolverID:    uuid.New(),
		AmountPaise: 100,
	})
	if !errors.HasCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
