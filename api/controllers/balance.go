package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type balanceReader interface {
	Read(ctx context.Context, tenantID string) (*models.CreditLedger, error)
}

// TenantBalance returns the tenant's current bucket snapshot. Tenant-scoped
// callers can only read their own tenant; admins and service callers read any.
func TenantBalance(service balanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantId")
		if err := authorizeTenantRead(r, tenantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := service.Read(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBalanceView(ledger))
	}
}

func authorizeTenantRead(r *http.Request, tenantID string) error {
	if tenantID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenantId is required")
	}
	role := middleware.RoleFromContext(r.Context())
	if role == string(enums.ActorRoleAdmin) || role == string(enums.ActorRoleService) {
		return nil
	}
	if middleware.TenantIDFromContext(r.Context()) != tenantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot access another tenant")
	}
	return nil
}
