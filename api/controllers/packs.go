package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/internal/catalog"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	pkgerrors "github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type catalogService interface {
	ListActive(ctx context.Context) ([]models.CreditPack, error)
	Create(ctx context.Context, params catalog.CreatePackParams) (*models.CreditPack, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PacksList returns the packs currently on sale.
func PacksList(service catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packs, err := service.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]packView, 0, len(packs))
		for i := range packs {
			views = append(views, newPackView(&packs[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

type createPackRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	AmountPaise int64  `json:"amountPaise" validate:"required,min=1"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	TotalDoubts int    `json:"totalDoubts" validate:"required,min=1"`
	SmallCount  int    `json:"smallCount" validate:"min=0"`
	MediumCount int    `json:"mediumCount" validate:"min=0"`
	LargeCount  int    `json:"largeCount" validate:"min=0"`
}

// AdminPackCreate registers a new purchasable pack.
func AdminPackCreate(service catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pack, err := service.Create(r.Context(), catalog.CreatePackParams{
			Name:        body.Name,
			AmountPaise: body.AmountPaise,
			Currency:    body.Currency,
			TotalDoubts: body.TotalDoubts,
			SmallCount:  body.SmallCount,
			MediumCount: body.MediumCount,
			LargeCount:  body.LargeCount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPackView(pack))
	}
}

// AdminPackDeactivate pulls a pack from sale. Settled history keeps pointing
// at it.
func AdminPackDeactivate(service catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packID, err := uuid.Parse(chi.URLParam(r, "packId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "packId must be a uuid"))
			return
		}
		if err := service.Deactivate(r.Context(), packID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
