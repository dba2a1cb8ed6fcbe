package controllers

import (
	"context"
	"net/http"

	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/purchases"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type settlementService interface {
	Settle(ctx context.Context, params purchases.SettleParams) (*purchases.SettleResult, error)
}

type razorpayCallbackRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// RazorpayCallback settles a purchase from the gateway's payment callback.
// The route is unauthenticated: the HMAC signature is the credential, and
// replays of an already settled order answer 200 without a second credit.
func RazorpayCallback(service settlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body razorpayCallbackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := service.Settle(r.Context(), purchases.SettleParams{
			GatewayOrderID:   body.RazorpayOrderID,
			GatewayPaymentID: body.RazorpayPaymentID,
			Signature:        body.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"purchase":       newPurchaseView(result.Purchase),
			"alreadySettled": result.AlreadySettled,
		}
		if result.Ledger != nil {
			payload["balance"] = newBalanceView(result.Ledger)
		}
		responses.WriteSuccess(w, payload)
	}
}
