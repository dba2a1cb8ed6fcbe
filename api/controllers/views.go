package controllers

import (
	"time"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

type balanceView struct {
	TenantID       string         `json:"tenantId"`
	Buckets        map[string]int `json:"buckets"`
	TotalAvailable int            `json:"totalAvailable"`
	Version        int64          `json:"version"`
}

func newBalanceView(ledger *models.CreditLedger) balanceView {
	buckets := make(map[string]int, 3)
	for category, count := range ledger.Buckets() {
		buckets[string(category)] = count
	}
	return balanceView{
		TenantID:       ledger.TenantID,
		Buckets:        buckets,
		TotalAvailable: ledger.TotalAvailable,
		Version:        ledger.Version,
	}
}

type packView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AmountPaise int64  `json:"amountPaise"`
	Currency    string `json:"currency"`
	TotalDoubts int    `json:"totalDoubts"`
	SmallCount  int    `json:"smallCount"`
	MediumCount int    `json:"mediumCount"`
	LargeCount  int    `json:"largeCount"`
	Active      bool   `json:"active"`
}

func newPackView(pack *models.CreditPack) packView {
	return packView{
		ID:          pack.ID.String(),
		Name:        pack.Name,
		AmountPaise: pack.AmountPaise,
		Currency:    pack.Currency,
		TotalDoubts: pack.TotalDoubts,
		SmallCount:  pack.SmallCount,
		MediumCount: pack.MediumCount,
		LargeCount:  pack.LargeCount,
		Active:      pack.Active,
	}
}

type purchaseView struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenantId"`
	PackID           string    `json:"packId"`
	AmountPaise      int64     `json:"amountPaise"`
	Currency         string    `json:"currency"`
	GatewayOrderID   string    `json:"gatewayOrderId"`
	GatewayPaymentID *string   `json:"gatewayPaymentId,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newPurchaseView(purchase *models.Purchase) purchaseView {
	return purchaseView{
		ID:               purchase.ID.String(),
		TenantID:         purchase.TenantID,
		PackID:           purchase.PackID.String(),
		AmountPaise:      purchase.AmountPaise,
		Currency:         purchase.Currency,
		GatewayOrderID:   purchase.GatewayOrderID,
		GatewayPaymentID: purchase.GatewayPaymentID,
		Status:           string(purchase.Status),
		CreatedAt:        purchase.CreatedAt,
	}
}

type walletView struct {
	UserID         string `json:"userId"`
	BalancePaise   int64  `json:"balancePaise"`
	ReservedPaise  int64  `json:"reservedPaise"`
	AvailablePaise int64  `json:"availablePaise"`
	Version        int64  `json:"version"`
}

func newWalletView(wallet *models.Wallet) walletView {
	return walletView{
		UserID:         wallet.UserID.String(),
		BalancePaise:   wallet.BalancePaise,
		ReservedPaise:  wallet.ReservedPaise,
		AvailablePaise: wallet.AvailablePaise(),
		Version:        wallet.Version,
	}
}

type withdrawalView struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	AmountPaise  int64      `json:"amountPaise"`
	PayoutMethod string     `json:"payoutMethod"`
	PayoutDetail string     `json:"payoutDetail"`
	Status       string     `json:"status"`
	AdminNotes   *string    `json:"adminNotes,omitempty"`
	ApprovedBy   *string    `json:"approvedBy,omitempty"`
	DisbursedAt  *time.Time `json:"disbursedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func newWithdrawalView(request *models.WithdrawalRequest) withdrawalView {
	view := withdrawalView{
		ID:           request.ID.String(),
		UserID:       request.UserID.String(),
		AmountPaise:  request.AmountPaise,
		PayoutMethod: string(request.PayoutMethod),
		PayoutDetail: request.PayoutDetail,
		Status:       string(request.Status),
		AdminNotes:   request.AdminNotes,
		DisbursedAt:  request.DisbursedAt,
		CreatedAt:    request.CreatedAt,
	}
	if request.ApprovedBy != nil {
		approver := request.ApprovedBy.String()
		view.ApprovedBy = &approver
	}
	return view
}

type transitionView struct {
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	ActorUserID string    `json:"actorUserId"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newTransitionView(transition *models.WithdrawalTransition) transitionView {
	return transitionView{
		FromStatus:  string(transition.FromStatus),
		ToStatus:    string(transition.ToStatus),
		ActorUserID: transition.ActorUserID.String(),
		Notes:       transition.Notes,
		CreatedAt:   transition.CreatedAt,
	}
}
