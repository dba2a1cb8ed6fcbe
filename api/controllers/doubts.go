package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/debits"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type chargeService interface {
	Charge(ctx context.Context, params debits.ChargeParams) (*debits.ChargeResult, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.DebitEvent, error)
}

type chargeRequest struct {
	TenantID string `json:"tenantId" validate:"required"`
	DoubtID  string `json:"doubtId" validate:"required"`
	Category string `json:"category" validate:"required,oneof=small medium large"`
}

// DoubtCharge deducts one credit when a doubt is raised. Called by the doubt
// intake service; retries with the same doubtId answer from the first charge.
func DoubtCharge(service chargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body chargeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseDoubtCategory(body.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		var actor *outbox.ActorRef
		if callerID, parseErr := uuid.Parse(middleware.UserIDFromContext(r.Context())); parseErr == nil {
			actor = &outbox.ActorRef{UserID: callerID, Role: middleware.RoleFromContext(r.Context())}
		}

		result, err := service.Charge(r.Context(), debits.ChargeParams{
			TenantID: body.TenantID,
			Category: category,
			DoubtID:  body.DoubtID,
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"balance":        newBalanceView(result.Ledger),
			"alreadyCharged": result.AlreadyCharged,
		})
	}
}

// DebitHistory lists the caller tenant's recent charges.
func DebitHistory(service chargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "tenant scope required"))
			return
		}

		rows, err := service.ListByTenant(r.Context(), tenantID, validators.QueryLimit(r, 50, 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		type debitView struct {
			DoubtID       string `json:"doubtId"`
			Category      string `json:"category"`
			Amount        int    `json:"amount"`
			LedgerVersion int64  `json:"ledgerVersion"`
		}
		views := make([]debitView, 0, len(rows))
		for _, row := range rows {
			views = append(views, debitView{
				DoubtID:       row.DoubtID,
				Category:      string(row.Category),
				Amount:        row.Amount,
				LedgerVersion: row.LedgerVersion,
			})
		}
		responses.WriteSuccess(w, views)
	}
}
