package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/api/responses"
	"github.com/doubtdesk/doubtdesk-backend/api/validators"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
)

type walletReader interface {
	Read(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Entries(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletEntry, error)
}

// WalletGet returns the calling earner's balance and reservation state.
func WalletGet(service walletReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := service.Read(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletView(wallet))
	}
}

// WalletEntries lists the calling earner's recent wallet movements.
func WalletEntries(service walletReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := service.Entries(r.Context(), userID, validators.QueryLimit(r, 50, 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		type entryView struct {
			Type        string `json:"type"`
			AmountPaise int64  `json:"amountPaise"`
			Reference   string `json:"reference"`
		}
		views := make([]entryView, 0, len(rows))
		for _, row := range rows {
			views = append(views, entryView{
				Type:        string(row.Type),
				AmountPaise: row.AmountPaise,
				Reference:   row.Reference,
			})
		}
		responses.WriteSuccess(w, views)
	}
}
