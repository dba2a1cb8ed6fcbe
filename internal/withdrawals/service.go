package withdrawals

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/internal/wallet"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
	"github.com/doubtdesk/doubtdesk-backend/pkg/enums"
	"github.com/doubtdesk/doubtdesk-backend/pkg/errors"
	"github.com/doubtdesk/doubtdesk-backend/pkg/logger"
	"github.com/doubtdesk/doubtdesk-backend/pkg/outbox"
)

type withdrawalRepository interface {
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	GetForUpdate(tx *gorm.DB, id uuid.UUID) (*models.WithdrawalRequest, error)
	Update(tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	InsertTransition(tx *gorm.DB, transition *models.WithdrawalTransition) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error)
	ListTransitions(ctx context.Context, requestID uuid.UUID) ([]models.WithdrawalTransition, error)
}

type walletMover interface {
	Read(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Reserve(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error)
	Release(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error)
	Payout(ctx context.Context, tx *gorm.DB, params wallet.MutationParams) (*models.Wallet, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the withdrawal state machine. Funds are soft-locked on the
// wallet at approval, paid out at disbursement and released again when an
// approved request is rejected. Every state change appends a transition row.
type Service struct {
	repo    withdrawalRepository
	wallets walletMover
	tx      txRunner
	logg    *logger.Logger
}

func NewService(repo withdrawalRepository, wallets walletMover, tx txRunner, logg *logger.Logger) *Service {
	return &Service{repo: repo, wallets: wallets, tx: tx, logg: logg}
}

// RequestParams opens a new cash-out request for an earner.
type RequestParams struct {
	UserID       uuid.UUID
	AmountPaise  int64
	PayoutMethod enums.PayoutMethod
	PayoutDetail string
}

// AdminActionParams is an admin decision on a pending or approved request.
type AdminActionParams struct {
	RequestID uuid.UUID
	AdminID   uuid.UUID
	Notes     string
}

// Request validates the amount against the earner's available balance and
// records a pending request. Nothing is locked yet; the balance check is a
// courtesy so obviously unfundable requests fail fast.
func (s *Service) Request(ctx context.Context, params RequestParams) (*models.WithdrawalRequest, error) {
	if params.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "userId is required")
	}
	if params.AmountPaise <= 0 {
		return nil, errors.New(errors.CodeValidation, "amountPaise must be positive")
	}
	if !params.PayoutMethod.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown payout method")
	}
	if params.PayoutDetail == "" {
		return nil, errors.New(errors.CodeValidation, "payoutDetail is required")
	}

	snapshot, err := s.wallets.Read(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if snapshot.AvailablePaise() < params.AmountPaise {
		return nil, errors.New(errors.CodeInsufficientFunds, "not enough withdrawable earnings").
			WithDetails(map[string]any{
				"available_paise": snapshot.AvailablePaise(),
				"required_paise":  params.AmountPaise,
			})
	}

	request := &models.WithdrawalRequest{
		UserID:       params.UserID,
		AmountPaise:  params.AmountPaise,
		PayoutMethod: params.PayoutMethod,
		PayoutDetail: params.PayoutDetail,
		Status:       enums.WithdrawalStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating withdrawal request")
	}

	s.logAction(ctx, request.ID, "withdrawal requested")
	return request, nil
}

// Approve moves a pending request to approved and reserves the amount on the
// earner's wallet. The reservation and the state change commit together.
func (s *Service) Approve(ctx context.Context, params AdminActionParams) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, params, enums.WithdrawalStatusApproved)
}

// Reject closes a pending request, or an approved one whose reservation is
// then released back to the wallet.
func (s *Service) Reject(ctx context.Context, params AdminActionParams) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, params, enums.WithdrawalStatusRejected)
}

// Disburse records the completed payout of an approved request and consumes
// the wallet reservation.
func (s *Service) Disburse(ctx context.Context, params AdminActionParams) (*models.WithdrawalRequest, error) {
	return s.transition(ctx, params, enums.WithdrawalStatusDisbursed)
}

func (s *Service) transition(ctx context.Context, params AdminActionParams, target enums.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if params.RequestID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "requestId is required")
	}
	if params.AdminID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "adminId is required")
	}

	var result *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.repo.GetForUpdate(tx, params.RequestID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "withdrawal request not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "locking withdrawal request")
		}

		if !allowed(request.Status, target) {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("cannot move withdrawal from %s to %s", request.Status, target)).
				WithDetails(map[string]any{"from": request.Status, "to": target})
		}

		actor := &outbox.ActorRef{UserID: params.AdminID, Role: string(enums.ActorRoleAdmin)}
		move := wallet.MutationParams{
			UserID:      request.UserID,
			AmountPaise: request.AmountPaise,
			Reference:   request.ID.String(),
			Actor:       actor,
		}
		switch target {
		case enums.WithdrawalStatusApproved:
			if _, err := s.wallets.Reserve(ctx, tx, move); err != nil {
				return err
			}
		case enums.WithdrawalStatusDisbursed:
			if _, err := s.wallets.Payout(ctx, tx, move); err != nil {
				return err
			}
		case enums.WithdrawalStatusRejected:
			if request.Status == enums.WithdrawalStatusApproved {
				if _, err := s.wallets.Release(ctx, tx, move); err != nil {
					return err
				}
			}
		}

		updates := map[string]any{"status": target}
		if params.Notes != "" {
			updates["admin_notes"] = params.Notes
		}
		now := time.Now()
		switch target {
		case enums.WithdrawalStatusApproved:
			updates["approved_by"] = params.AdminID
		case enums.WithdrawalStatusDisbursed:
			updates["disbursed_at"] = now
		}
		if err := s.repo.Update(tx, request.ID, updates); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "updating withdrawal request")
		}

		transition := &models.WithdrawalTransition{
			RequestID:   request.ID,
			FromStatus:  request.Status,
			ToStatus:    target,
			ActorUserID: params.AdminID,
		}
		if params.Notes != "" {
			notes := params.Notes
			transition.Notes = &notes
		}
		if err := s.repo.InsertTransition(tx, transition); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording withdrawal transition")
		}

		request.Status = target
		if params.Notes != "" {
			notes := params.Notes
			request.AdminNotes = &notes
		}
		if target == enums.WithdrawalStatusApproved {
			adminID := params.AdminID
			request.ApprovedBy = &adminID
		}
		if target == enums.WithdrawalStatusDisbursed {
			request.DisbursedAt = &now
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAction(ctx, result.ID, fmt.Sprintf("withdrawal %s", target))
	return result, nil
}

// Get returns a single request. Earners may only see their own.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, err := s.repo.Get(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "withdrawal request not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading withdrawal request")
	}
	return request, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "userId is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing withdrawals")
	}
	return rows, nil
}

// ListQueue returns the admin work queue for one status, oldest first.
func (s *Service) ListQueue(ctx context.Context, status enums.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	if !status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown withdrawal status")
	}
	rows, err := s.repo.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing withdrawal queue")
	}
	return rows, nil
}

// History returns the audit trail of a request.
func (s *Service) History(ctx context.Context, requestID uuid.UUID) ([]models.WithdrawalTransition, error) {
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTransitions(ctx, requestID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing withdrawal history")
	}
	return rows, nil
}

// allowed encodes the state machine. Rejection of an approved request is
// permitted so admins can back out before money moves.
func allowed(from, to enums.WithdrawalStatus) bool {
	switch from {
	case enums.WithdrawalStatusPending:
		return to == enums.WithdrawalStatusApproved || to == enums.WithdrawalStatusRejected
	case enums.WithdrawalStatusApproved:
		return to == enums.WithdrawalStatusDisbursed || to == enums.WithdrawalStatusRejected
	default:
		return false
	}
}

func (s *Service) logAction(ctx context.Context, requestID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{"withdrawal_id": requestID}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
