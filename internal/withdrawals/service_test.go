package withdrawals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/wallet"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
)

type fakeWithdrawalRepo struct {
	request     *models.WithdrawalRequest
	created     *models.WithdrawalRequest
	updates     map[string]any
	transitions []models.WithdrawalTransition
}

func (f *fakeWithdrawalRepo) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	f.created = request
	return nil
}

func (f *fakeWithdrawalRepo) Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	if f.request == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.request, nil
}

func (f *fakeWithdrawalRepo) GetForUpdate(tx *gorm.DB, id uuid.UUID) (*models.WithdrawalRequest, error) {
	if f.request == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.request
	return &copied, nil
}

func (f *fakeWithdrawalRepo) Update(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	f.updates = updates
	return nil
}

func (f *fakeWithdrawalRepo) InsertTransition(tx *gorm.DB, transition *models.WithdrawalTransition) error {
	f.transitions = append(f.transitions, *transition)
	return nil
}

func (f *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawalRepo) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawalRepo) ListTransitions(ctx context.Context, requestID uuid.UUID) ([]models.WithdrawalTransition, error) {
	return f.transitions, nil
}

type fakeWalletMover struct {
	available  int64
	reserves   []wallet.MutationParams
	releases   []wallet.MutationParams
	payouts    []wallet.MutationParams
	reserveErr error
}

func (f *fakeWalletMover) Read(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID, BalancePaise: f.available}, nil
}

func (f *fakeWalletMover) Reserve(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.reserves = append(f.reserves, params)
	return &models.Wallet{UserID: params.UserID}, nil
}

func (f *fakeWalletMover) Release(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error) {
	f.releases = append(f.releases, params)
	return &models.Wallet{UserID: params.UserID}, nil
}

func (f *fakeWalletMover) Payout(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error) {
	f.payouts = append(f.payouts, params)
	return &models.Wallet{UserID: params.UserID}, nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func pendingRequest() *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		AmountPaise:  50000,
		PayoutMethod: enums.PayoutMethodUPI,
		PayoutDetail: "earner@upi",
		Status:       enums.WithdrawalStatusPending,
	}
}

func TestRequestRejectsUnfundable(t *testing.T) {
	svc := NewService(&fakeWithdrawalRepo{}, &fakeWalletMover{available: 100}, &fakeTxRunner{}, nil)

	_, err := svc.Request(context.Background(), RequestParams{
		UserID:       uuid.New(),
		AmountPaise:  50000,
		PayoutMethod: enums.PayoutMethodUPI,
		PayoutDetail: "earner@upi",
	})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestRequestCreatesPending(t *testing.T) {
	repo := &fakeWithdrawalRepo{}
	svc := NewService(repo, &fakeWalletMover{available: 100000}, &fakeTxRunner{}, nil)

	request, err := svc.Request(context.Background(), RequestParams{
		UserID:       uuid.New(),
		AmountPaise:  50000,
		PayoutMethod: enums.PayoutMethodUPI,
		PayoutDetail: "earner@upi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}
	if repo.created == nil {
		t.Fatal("expected request row to be created")
	}
}

func TestApproveReservesAndRecordsTransition(t *testing.T) {
	repo := &fakeWithdrawalRepo{request: pendingRequest()}
	mover := &fakeWalletMover{}
	svc := NewService(repo, mover, &fakeTxRunner{}, nil)

	adminID := uuid.New()
	request, err := svc.Approve(context.Background(), AdminActionParams{
		RequestID: repo.request.ID,
		AdminID:   adminID,
		Notes:     "verified KYC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.Status != enums.WithdrawalStatusApproved {
		t.Fatalf("expected approved, got %s", request.Status)
	}
	if len(mover.reserves) != 1 || mover.reserves[0].AmountPaise != 50000 {
		t.Fatalf("expected funds reserved, got %+v", mover.reserves)
	}
	if len(repo.transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(repo.transitions))
	}
	tr := repo.transitions[0]
	if tr.FromStatus != enums.WithdrawalStatusPending || tr.ToStatus != enums.WithdrawalStatusApproved {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if tr.ActorUserID != adminID {
		t.Fatal("transition must record the acting admin")
	}
}

func TestApproveFailsWhenWalletCannotCover(t *testing.T) {
	repo := &fakeWithdrawalRepo{request: pendingRequest()}
	mover := &fakeWalletMover{reserveErr: errors.New(errors.CodeInsufficientFunds, "not enough withdrawable earnings")}
	svc := NewService(repo, mover, &fakeTxRunner{}, nil)

	_, err := svc.Approve(context.Background(), AdminActionParams{RequestID: repo.request.ID, AdminID: uuid.New()})
	if !errors.HasCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(repo.transitions) != 0 {
		t.Fatal("failed approval must not record a transition")
	}
}

func TestDisburseRequiresApproved(t *testing.T) {
	repo := &fakeWithdrawalRepo{request: pendingRequest()}
	mover := &fakeWalletMover{}
	svc := NewService(repo, mover, &fakeTxRunner{}, nil)

	_, err := svc.Disburse(context.Background(), AdminActionParams{RequestID: repo.request.ID, AdminID: uuid.New()})
	if !errors.HasCode(err, errors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(mover.payouts) != 0 {
		t.Fatal("no payout may happen from pending")
	}
}

func TestDisburseConsumesReservation(t *testing.T) {
	request := pendingRequest()
	request.Status = enums.WithdrawalStatusApproved
	repo := &fakeWithdrawalRepo{request: request}
	mover := &fakeWalletMover{}
	svc := NewService(repo, mover, &fakeTxRunner{}, nil)

	updated, err := svc.Disburse(context.Background(), AdminActionParams{RequestID: request.ID, AdminID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.WithdrawalStatusDisbursed {
		t.Fatalf("expected disbursed, got %s", updated.Status)
	}
	if updated.DisbursedAt == nil {
		t.Fatal("expected disbursed timestamp")
	}
	if len(mover.payouts) != 1 {
		t.Fatalf("expected payout, got %+v", mover.payouts)
	}
}

func TestRejectApprovedReleasesReservation(t *testing.T) {
	request := pendingRequest()
	request.Status = enums.WithdrawalStatusApproved
	repo := &fakeWithdrawalRepo{request: request}
	mover := &fakeWalletMover{}
	svc := NewService(repo, mover, &fakeTxRunner{}, nil)

	updated, err := svc.Reject(context.Background(), AdminActionParams{RequestID: request.ID, AdminID: uuid.New(), Notes: "bank detail mismatch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}
	if len(mover.releases) != 1 {
		t.Fatalf("expected reservation release, got %+v", mover.releases)
	}
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	request := pendingRequest()
	request.Status = enums.WithdrawalStatusDisbursed
	repo := &fakeWithdrawalRepo{request: request}
	svc := NewService(repo, &fakeWalletMover{}, &fakeTxRunner{}, nil)

	_, err := svc.Reject(context.Background(), AdminActionParams{RequestID: request.ID, AdminID: uuid.New()})
	if !errors.HasCode(err, errors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
