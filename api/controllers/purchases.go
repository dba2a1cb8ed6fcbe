package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/purchases"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type purchaseService interface {
	Initiate(ctx context.Context, params purchases.InitiateParams) (*purchases.InitiateResult, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Purchase, error)
}

type initiatePurchaseRequest struct {
	PackID string `json:"packId" validate:"required,uuid"`
}

// PurchaseInitiate opens a gateway order for the caller's tenant.
func PurchaseInitiate(service purchaseService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "tenant scope required"))
			return
		}

		var body initiatePurchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		packID, err := uuid.Parse(body.PackID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "packId must be a uuid"))
			return
		}

		result, err := service.Initiate(r.Context(), purchases.InitiateParams{
			TenantID: tenantID,
			PackID:   packID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"purchase": newPurchaseView(result.Purchase),
			"order":    result.Order,
		})
	}
}

// PurchaseList returns the caller tenant's recent purchases.
func PurchaseList(service purchaseService, logg *logger.Logger) http.HandlerFunc {
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
		views := make([]purchaseView, 0, len(rows))
		for i := range rows {
			views = append(views, newPurchaseView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
