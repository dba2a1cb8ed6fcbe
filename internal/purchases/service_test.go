package purchases

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/razorpay"
)

type fakePurchaseRepo struct {
	createFn       func(ctx context.Context, purchase *models.Purchase) error
	getForUpdateFn func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error)
	updateStatusFn func(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, paymentID *string) error
	listFn         func(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error)
}

func (f *fakePurchaseRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	if f.createFn != nil {
		return f.createFn(ctx, purchase)
	}
	return nil
}

func (f *fakePurchaseRepo) GetByOrderIDForUpdate(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
	return f.getForUpdateFn(tx, gatewayOrderID)
}

func (f *fakePurchaseRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, paymentID *string) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(tx, id, status, paymentID)
	}
	return nil
}

func (f *fakePurchaseRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error) {
	if f.listFn != nil {
		return f.listFn(ctx, tenantID, limit)
	}
	return nil, nil
}

type fakePacks struct {
	pack *models.CreditPack
	err  error
}

func (f *fakePacks) Get(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	return f.pack, f.err
}

func (f *fakePacks) GetPurchasable(ctx context.Context, id uuid.UUID) (*models.CreditPack, error) {
	return f.pack, f.err
}

type fakeLedgerCreditor struct {
	credits []ledger.CreditParams
	err     error
}

func (f *fakeLedgerCreditor) Credit(ctx context.Context, tx *gorm.DB, params ledger.CreditParams) (*models.CreditLedger, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.credits = append(f.credits, params)
	total := 0
	for _, count := range params.Additions {
		total += count
	}
	return &models.CreditLedger{TenantID: params.TenantID, TotalAvailable: total, Version: 1}, nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOrderCreator struct {
	order *razorpay.Order
	err   error
}

func (f *fakeOrderCreator) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakeVerifier struct {
	ok bool
}

func (f *fakeVerifier) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return f.ok
}

func testPack() *models.CreditPack {
	return &models.CreditPack{
		ID:          uuid.New(),
		Name:        "Starter",
		AmountPaise: 49900,
		Currency:    "INR",
		TotalDoubts: 13,
		SmallCount:  10,
		MediumCount: 2,
		LargeCount:  1,
		Active:      true,
	}
}

func TestInitiateCreatesOrderAndPendingPurchase(t *testing.T) {
	pack := testPack()
	var created *models.Purchase
	repo := &fakePurchaseRepo{
		createFn: func(ctx context.Context, purchase *models.Purchase) error {
			created = purchase
			return nil
		},
	}
	svc := NewService(repo, &fakePacks{pack: pack}, &fakeLedgerCreditor{}, &fakeTxRunner{},
		&fakeOrderCreator{order: &razorpay.Order{OrderID: "order_abc", AmountPaise: pack.AmountPaise, Currency: "INR"}},
		&fakeVerifier{ok: true}, nil)

	result, err := svc.Initiate(context.Background(), InitiateParams{TenantID: "tenant-1", PackID: pack.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.OrderID != "order_abc" {
		t.Fatalf("unexpected order: %+v", result.Order)
	}
	if created == nil {
		t.Fatal("expected purchase row to be created")
	}
	if created.Status != enums.PurchaseStatusCreated {
		t.Fatalf("expected status created, got %s", created.Status)
	}
	if created.GatewayOrderID != "order_abc" {
		t.Fatalf("expected order id recorded, got %q", created.GatewayOrderID)
	}
	if created.AmountPaise != pack.AmountPaise {
		t.Fatalf("expected pack price snapshot, got %d", created.AmountPaise)
	}
}

func TestSettleCreditsBucketsOnce(t *testing.T) {
	pack := testPack()
	purchase := &models.Purchase{
		ID:             uuid.New(),
		TenantID:       "tenant-1",
		PackID:         pack.ID,
		GatewayOrderID: "order_abc",
		Status:         enums.PurchaseStatusCreated,
	}
	var statusWrites []enums.PurchaseStatus
	repo := &fakePurchaseRepo{
		getForUpdateFn: func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
			return purchase, nil
		},
		updateStatusFn: func(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, paymentID *string) error {
			statusWrites = append(statusWrites, status)
			return nil
		},
	}
	creditor := &fakeLedgerCreditor{}
	svc := NewService(repo, &fakePacks{pack: pack}, creditor, &fakeTxRunner{}, &fakeOrderCreator{}, &fakeVerifier{ok: true}, nil)

	result, err := svc.Settle(context.Background(), SettleParams{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadySettled {
		t.Fatal("first settlement must not report a replay")
	}
	if len(creditor.credits) != 1 {
		t.Fatalf("expected exactly one credit, got %d", len(creditor.credits))
	}
	additions := creditor.credits[0].Additions
	if additions[enums.DoubtCategorySmall] != 10 || additions[enums.DoubtCategoryMedium] != 2 || additions[enums.DoubtCategoryLarge] != 1 {
		t.Fatalf("unexpected additions: %+v", additions)
	}
	if len(statusWrites) != 1 || statusWrites[0] != enums.PurchaseStatusCredited {
		t.Fatalf("expected credited status write, got %+v", statusWrites)
	}
}

func TestSettleReplayDoesNotCreditTwice(t *testing.T) {
	pack := testPack()
	paymentID := "pay_xyz"
	repo := &fakePurchaseRepo{
		getForUpdateFn: func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
			return &models.Purchase{
				ID:               uuid.New(),
				TenantID:         "tenant-1",
				PackID:           pack.ID,
				GatewayOrderID:   gatewayOrderID,
				GatewayPaymentID: &paymentID,
				Status:           enums.PurchaseStatusCredited,
			}, nil
		},
	}
	creditor := &fakeLedgerCreditor{}
	svc := NewService(repo, &fakePacks{pack: pack}, creditor, &fakeTxRunner{}, &fakeOrderCreator{}, &fakeVerifier{ok: true}, nil)

	result, err := svc.Settle(context.Background(), SettleParams{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("replayed settlement must succeed, got %v", err)
	}
	if !result.AlreadySettled {
		t.Fatal("expected replay to be reported")
	}
	if len(creditor.credits) != 0 {
		t.Fatalf("replay must not credit, got %d credits", len(creditor.credits))
	}
}

func TestSettleBadSignatureFailsWithoutCredit(t *testing.T) {
	pack := testPack()
	var statusWrites []enums.PurchaseStatus
	repo := &fakePurchaseRepo{
		getForUpdateFn: func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
			return &models.Purchase{ID: uuid.New(), PackID: pack.ID, Status: enums.PurchaseStatusCreated}, nil
		},
		updateStatusFn: func(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, paymentID *string) error {
			statusWrites = append(statusWrites, status)
			return nil
		},
	}
	creditor := &fakeLedgerCreditor{}
	svc := NewService(repo, &fakePacks{pack: pack}, creditor, &fakeTxRunner{}, &fakeOrderCreator{}, &fakeVerifier{ok: false}, nil)

	_, err := svc.Settle(context.Background(), SettleParams{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "forged",
	})
	if !errors.HasCode(err, errors.CodeVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	if len(creditor.credits) != 0 {
		t.Fatal("bad signature must not credit")
	}
	if len(statusWrites) != 1 || statusWrites[0] != enums.PurchaseStatusFailed {
		t.Fatalf("expected failed status write, got %+v", statusWrites)
	}
}

func TestSettleUnknownOrder(t *testing.T) {
	repo := &fakePurchaseRepo{
		getForUpdateFn: func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewService(repo, &fakePacks{pack: testPack()}, &fakeLedgerCreditor{}, &fakeTxRunner{}, &fakeOrderCreator{}, &fakeVerifier{ok: true}, nil)

	_, err := svc.Settle(context.Background(), SettleParams{
		GatewayOrderID:   "order_missing",
		GatewayPaymentID: "pay_xyz",
		Signature:        "sig",
	})
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettleUnknownOrderWinsOverBadSignature(t *testing.T) {
	repo := &fakePurchaseRepo{
		getForUpdateFn: func(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewService(repo, &fakePacks{pack: testPack()}, &fakeLedgerCreditor{}, &fakeTxRunner{}, &fakeOrderCreator{}, &fakeVerifier{ok: false}, nil)

	_, err := svc.Settle(context.Background(), SettleParams{
		GatewayOrderID:   "order_missing",
		GatewayPaymentID: "pay_xyz",
		Signature:        "forged",
	})
	if !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found for an order that was never created, got %v", err)
	}
}
