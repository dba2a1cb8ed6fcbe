package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/middleware"
	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/withdrawals"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type withdrawalService interface {
	Request(ctx context.Context, params withdrawals.RequestParams) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, params withdrawals.AdminActionParams) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, params withdrawals.AdminActionParams) (*models.WithdrawalRequest, error)
	Disburse(ctx context.Context, params withdrawals.AdminActionParams) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error)
	ListQueue(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error)
	History(ctx context.Context, requestID uuid.UUID) ([]models.WithdrawalTransition, error)
}

type createWithdrawalRequest struct {
	AmountPaise  int64  `json:"amountPaise" validate:"required,min=1"`
	PayoutMethod string `json:"payoutMethod" validate:"required,oneof=upi bank"`
	PayoutDetail string `json:"payoutDetail" validate:"required,min=3,max=200"`
}

// WithdrawalCreate opens a cash-out request for the calling earner.
func WithdrawalCreate(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePayoutMethod(body.PayoutMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout method"))
			return
		}

		request, err := service.Request(r.Context(), withdrawals.RequestParams{
			UserID:       userID,
			AmountPaise:  body.AmountPaise,
			PayoutMethod: method,
			PayoutDetail: body.PayoutDetail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWithdrawalView(request))
	}
}

// WithdrawalList returns the calling earner's requests, newest first.
func WithdrawalList(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := service.ListByUser(r.Context(), userID, validators.QueryLimit(r, 50, 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]withdrawalView, 0, len(rows))
		for i := range rows {
			views = append(views, newWithdrawalView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// WithdrawalDetail returns one request with its transition history. Earners
// only see their own.
func WithdrawalDetail(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := withdrawalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := service.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := middleware.RoleFromContext(r.Context())
		if role != string(enums.ActorRoleAdmin) {
			callerID, callerErr := callerUserID(r)
			if callerErr != nil || callerID != request.UserID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot access another earner's request"))
				return
			}
		}

		history, err := service.History(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transitions := make([]transitionView, 0, len(history))
		for i := range history {
			transitions = append(transitions, newTransitionView(&history[i]))
		}

		responses.WriteSuccess(w, map[string]any{
			"request":     newWithdrawalView(request),
			"transitions": transitions,
		})
	}
}

// AdminWithdrawalQueue lists requests by status, oldest first.
func AdminWithdrawalQueue(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("status")
		if raw == "" {
			raw = string(enums.WithdrawalStatusPending)
		}
		status, err := enums.ParseWithdrawalStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		rows, err := service.ListQueue(r.Context(), status, validators.QueryLimit(r, 50, 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]withdrawalView, 0, len(rows))
		for i := range rows {
			views = append(views, newWithdrawalView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

type adminDecisionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=500"`
}

type adminAction func(context.Context, withdrawals.AdminActionParams) (*models.WithdrawalRequest, error)

// AdminWithdrawalApprove reserves funds and moves the request to approved.
func AdminWithdrawalApprove(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return adminDecision(service.Approve, logg)
}

// AdminWithdrawalReject closes the request, releasing any reservation.
func AdminWithdrawalReject(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return adminDecision(service.Reject, logg)
}

// AdminWithdrawalDisburse records the completed payout.
func AdminWithdrawalDisburse(service withdrawalService, logg *logger.Logger) http.HandlerFunc {
	return adminDecision(service.Disburse, logg)
}

func adminDecision(action adminAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := withdrawalID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adminDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := action(r.Context(), withdrawals.AdminActionParams{
			RequestID: requestID,
			AdminID:   adminID,
			Notes:     body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWithdrawalView(request))
	}
}

func withdrawalID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "withdrawalId"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawalId must be a uuid")
	}
	return id, nil
}

func callerUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}
	return id, nil
}
