package purchases

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/ledger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
	"github.com/doubtdesk/doubtdesk-backend/pkg/razorpay"
)

type purchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	GetByOrderIDForUpdate(tx *gorm.DB, gatewayOrderID string) (*models.Purchase, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, status enums.PurchaseStatus, gatewayPaymentID *string) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error)
}

type packLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.CreditPack, error)
	GetPurchasable(ctx context.Context, id uuid.UUID) (*models.CreditPack, error)
}

type ledgerCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, params ledger.CreditParams) (*models.CreditLedger, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the purchase lifecycle: gateway order creation up front,
// then exactly-once ledger crediting when the payment callback arrives.
type Service struct {
	repo     purchaseRepository
	packs    packLoader
	ledger   ledgerCreditor
	tx       txRunner
	orders   razorpay.OrderCreator
	verifier razorpay.SignatureVerifier
	logg     *logger.Logger
}

func NewService(
	repo purchaseRepository,
	packs packLoader,
	ledgerSvc ledgerCreditor,
	tx txRunner,
	orders razorpay.OrderCreator,
	verifier razorpay.SignatureVerifier,
	logg *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		packs:    packs,
		ledger:   ledgerSvc,
		tx:       tx,
		orders:   orders,
		verifier: verifier,
		logg:     logg,
	}
}

// InitiateParams starts a purchase for a tenant.
type InitiateParams struct {
	TenantID string
	PackID   uuid.UUID
}

// InitiateResult carries what the checkout client needs to open the gateway
// widget.
type InitiateResult struct {
	Purchase *models.Purchase
	Order    *razorpay.Order
}

// SettleParams is the verified payment callback payload.
type SettleParams struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Actor            *outbox.ActorRef
}

// SettleResult reports the post-settlement state. AlreadySettled marks a
// replayed callback that was answered without touching the ledger.
type SettleResult struct {
	Purchase       *models.Purchase
	Ledger         *models.CreditLedger
	AlreadySettled bool
}

// Initiate creates a gateway order for the pack price and records the pending
// purchase keyed by the returned order id.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (*InitiateResult, error) {
	if params.TenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	if params.PackID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "packId is required")
	}

	pack, err := s.packs.GetPurchasable(ctx, params.PackID)
	if err != nil {
		return nil, err
	}

	receipt := uuid.NewString()
	order, err := s.orders.CreateOrder(ctx, pack.AmountPaise, pack.Currency, receipt, map[string]string{
		"tenant_id": params.TenantID,
		"pack_id":   pack.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		TenantID:       params.TenantID,
		PackID:         pack.ID,
		AmountPaise:    pack.AmountPaise,
		Currency:       pack.Currency,
		GatewayOrderID: order.OrderID,
		Status:         enums.PurchaseStatusCreated,
	}
	if err := s.repo.Create(ctx, purchase); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording purchase")
	}

	if s.logg != nil {
		fields := map[string]any{
			"tenant_id":        params.TenantID,
			"pack_id":          pack.ID,
			"gateway_order_id": order.OrderID,
			"amount_paise":     pack.AmountPaise,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "purchase initiated")
	}

	return &InitiateResult{Purchase: purchase, Order: order}, nil
}

// Settle verifies the gateway signature and credits the pack's buckets to the
// tenant's ledger exactly once. Replays of an already credited order succeed
// without a second credit.
func (s *Service) Settle(ctx context.Context, params SettleParams) (*SettleResult, error) {
	if params.GatewayOrderID == "" || params.GatewayPaymentID == "" || params.Signature == "" {
		return nil, errors.New(errors.CodeValidation, "orderId, paymentId and signature are required")
	}

	var result SettleResult
	var verificationFailed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		purchase, err := s.repo.GetByOrderIDForUpdate(tx, params.GatewayOrderID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "unknown gateway order")
			}
			return errors.Wrap(errors.CodeInternal, err, "locking purchase")
		}

		if purchase.Status == enums.PurchaseStatusCredited {
			result.Purchase = purchase
			result.AlreadySettled = true
			return nil
		}
		if purchase.Status == enums.PurchaseStatusFailed {
			return errors.New(errors.CodeStateConflict, "purchase already failed verification")
		}

		if !s.verifier.VerifyPaymentSignature(params.GatewayOrderID, params.GatewayPaymentID, params.Signature) {
			// Commit the failed mark; a forged callback ends this purchase
			// and a fresh order is required.
			verificationFailed = true
			return s.repo.UpdateStatus(tx, purchase.ID, enums.PurchaseStatusFailed, nil)
		}

		// A pack pulled from sale after checkout still settles, so the
		// active flag is not consulted here.
		pack, err := s.packs.Get(ctx, purchase.PackID)
		if err != nil {
			return err
		}

		updated, err := s.ledger.Credit(ctx, tx, ledger.CreditParams{
			TenantID: purchase.TenantID,
			Additions: map[enums.DoubtCategory]int{
				enums.DoubtCategorySmall:  pack.SmallCount,
				enums.DoubtCategoryMedium: pack.MediumCount,
				enums.DoubtCategoryLarge:  pack.LargeCount,
			},
			Reason: "purchase.settled",
			Actor:  params.Actor,
		})
		if err != nil {
			return err
		}

		paymentID := params.GatewayPaymentID
		if err := s.repo.UpdateStatus(tx, purchase.ID, enums.PurchaseStatusCredited, &paymentID); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating purchase status")
		}

		purchase.Status = enums.PurchaseStatusCredited
		purchase.GatewayPaymentID = &paymentID
		result.Purchase = purchase
		result.Ledger = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verificationFailed {
		return nil, errors.New(errors.CodeVerificationFailed, "payment signature mismatch")
	}

	if s.logg != nil {
		fields := map[string]any{
			"gateway_order_id": params.GatewayOrderID,
			"already_settled":  result.AlreadySettled,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "purchase settled")
	}
	return &result, nil
}

// ListByTenant returns the tenant's recent purchases, newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error) {
	if tenantID == "" {
		return nil, errors.New(errors.CodeValidation, "tenantId is required")
	}
	rows, err := s.repo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing purchases")
	}
	return rows, nil
}
