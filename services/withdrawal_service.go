package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

type WithdrawalService interface {
	// RequestWithdrawal opens a pending request. The balance is only
	// debited on approval, so the request-time check is advisory.
	RequestWithdrawal(ctx context.Context, userID, amount int, phoneNumber, paymentMethod string) (*models.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID, adminID int, transactionID *string, notes *string) (*models.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, withdrawalID, adminID int, notes *string) (*models.Withdrawal, error)
	ListUserWithdrawals(ctx context.Context, userID int) ([]*models.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context) ([]*models.Withdrawal, error)
}

type withdrawalService struct {
	withdrawalRepo repositories.WithdrawalRepository
	userRepo       repositories.UserRepository
	tx             repositories.Transactor
	logger         *slog.Logger
}

func NewWithdrawalService(
	withdrawalRepo repositories.WithdrawalRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) WithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		userRepo:       userRepo,
		tx:             tx,
		logger:         logger,
	}
}

func (s *withdrawalService) RequestWithdrawal(ctx context.Context, userID, amount int, phoneNumber, paymentMethod string) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrValidationFailed)
	}
	if paymentMethod == "" {
		paymentMethod = "mpesa"
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	withdrawal := &models.Withdrawal{
		UserID:        userID,
		UserName:      user.Username,
		Amount:        amount,
		PhoneNumber:   phoneNumber,
		PaymentMethod: paymentMethod,
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   time.Now(),
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.withdrawalRepo.Create(ctx, exec, withdrawal)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	s.logger.InfoContext(ctx, "withdrawal requested",
		slog.Int("withdrawal_id", withdrawal.ID),
		slog.Int("user_id", userID),
		slog.Int("amount", amount))
	return withdrawal, nil
}

func (s *withdrawalService) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID int, transactionID *string, notes *string) (*models.Withdrawal, error) {
	withdrawal, err := s.loadWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	now := time.Now()
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.userRepo.DebitBalance(ctx, exec, withdrawal.UserID, withdrawal.Amount); txErr != nil {
			return txErr
		}
		return s.withdrawalRepo.MarkProcessed(ctx, exec, withdrawalID,
			models.WithdrawalStatusApproved, adminID, transactionID, notes, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserInsufficientBalance):
			return nil, ErrInsufficientBalance
		case errors.Is(err, repositories.ErrWithdrawalStateConflict):
			return nil, ErrWithdrawalNotPending
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "withdrawal approved",
		slog.Int("withdrawal_id", withdrawalID),
		slog.Int("processed_by", adminID),
		slog.Int("amount", withdrawal.Amount))
	return s.loadWithdrawal(ctx, withdrawalID)
}

func (s *withdrawalService) RejectWithdrawal(ctx context.Context, withdrawalID, adminID int, notes *string) (*models.Withdrawal, error) {
	withdrawal, err := s.loadWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.withdrawalRepo.MarkProcessed(ctx, exec, withdrawalID,
			models.WithdrawalStatusRejected, adminID, nil, notes, time.Now())
	})
	if err != nil {
		if errors.Is(err, repositories.ErrWithdrawalStateConflict) {
			return nil, ErrWithdrawalNotPending
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "withdrawal rejected",
		slog.Int("withdrawal_id", withdrawalID),
		slog.Int("processed_by", adminID))
	return s.loadWithdrawal(ctx, withdrawalID)
}

func (s *withdrawalService) loadWithdrawal(ctx context.Context, id int) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrWithdrawalNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	return withdrawal, nil
}

func (s *withdrawalService) ListUserWithdrawals(ctx context.Context, userID int) ([]*models.Withdrawal, error) {
	return s.withdrawalRepo.ListByUser(ctx, userID)
}

func (s *withdrawalService) ListPendingWithdrawals(ctx context.Context) ([]*models.Withdrawal, error) {
	return s.withdrawalRepo.ListByStatus(ctx, models.WithdrawalStatusPending)
}
