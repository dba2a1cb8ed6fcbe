package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type earningCreditor interface {
	CreditEarning(ctx context.Context, tx *gorm.DB, params MutationParams) (*models.Wallet, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Earnings records answered-doubt payout shares on solver wallets. It wraps
// the wallet mutation in its own transaction because nothing else moves in
// the same commit.
type Earnings struct {
	wallets earningCreditor
	tx      txRunner
	logg    *logger.Logger
}

func NewEarnings(wallets *Service, tx txRunner, logg *logger.Logger) *Earnings {
	return &Earnings{wallets: wallets, tx: tx, logg: logg}
}

// EarningParams credits one solved doubt's share to an earner.
type EarningParams struct {
	SolverID    uuid.UUID
	AmountPaise int64
	DoubtID     string
	Actor       *outbox.ActorRef
}

func (e *Earnings) Record(ctx context.Context, params EarningParams) (*models.Wallet, error) {
	if params.DoubtID == "" {
		return nil, errors.New(errors.CodeValidation, "doubtId is required")
	}

	var wallet *models.Wallet
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, creditErr := e.wallets.CreditEarning(ctx, tx, MutationParams{
			UserID:      params.SolverID,
			AmountPaise: params.AmountPaise,
			Reference:   params.DoubtID,
			Actor:       params.Actor,
		})
		if creditErr != nil {
			return creditErr
		}
		wallet = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.logg != nil {
		fields := map[string]any{"user_id": params.SolverID, "doubt_id": params.DoubtID}
		e.logg.Info(e.logg.WithFields(ctx, fields), "earning recorded")
	}
	return wallet, nil
}
