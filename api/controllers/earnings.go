package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/wallet"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type earningRecorder interface {
	Record(ctx context.Context, params wallet.EarningParams) (*models.Wallet, error)
}

type earningRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	AmountPaise int64  `json:"amountPaise" validate:"required,min=1"`
	DoubtID     string `json:"doubtId" validate:"required"`
}

// EarningCredit funds a solver's wallet when a doubt is answered. Called by
// the doubt resolution service.
func EarningCredit(service earningRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body earningRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		solverID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "userId must be a uuid"))
			return
		}

		var actor *outbox.ActorRef
		if callerID, parseErr := uuid.Parse(middleware.UserIDFromContext(r.Context())); parseErr == nil {
			actor = &outbox.ActorRef{UserID: callerID, Role: middleware.RoleFromContext(r.Context())}
		}

		updated, err := service.Record(r.Context(), wallet.EarningParams{
			SolverID:    solverID,
			AmountPaise: body.AmountPaise,
			DoubtID:     body.DoubtID,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletView(updated))
	}
}
