package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/payments"
	"github.com/Kiptoo96/esports-arena/repositories"
)

// pendingPayment tracks an STK push still waiting for its callback. Entries
// live in memory only: an abandoned prompt simply never registers the player
// and the user retries.
type pendingPayment struct {
	UserID       int
	TournamentID int
	PhoneNumber  string
	Amount       int
	CreatedAt    time.Time
}

const pendingPaymentTTL = time.Hour

type PaymentService interface {
	// InitiateEntryPayment pushes a payment prompt for the tournament fee.
	// Free tournaments register the player immediately without a prompt.
	InitiateEntryPayment(ctx context.Context, userID, tournamentID int, phoneNumber string) (*payments.STKPushResponse, error)
	// HandleCallback consumes the Daraja result and, on success, turns the
	// pending payment into a tournament registration.
	HandleCallback(ctx context.Context, payload payments.CallbackPayload) error
}

type paymentService struct {
	daraja         *payments.DarajaClient
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	playerService  PlayerService
	logger         *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingPayment
}

func NewPaymentService(
	daraja *payments.DarajaClient,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	playerService PlayerService,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		daraja:         daraja,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		playerService:  playerService,
		logger:         logger,
		pending:        make(map[string]pendingPayment),
	}
}

func (s *paymentService) InitiateEntryPayment(ctx context.Context, userID, tournamentID int, phoneNumber string) (*payments.STKPushResponse, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentStatusCreated {
		return nil, ErrBracketAlreadyGenerated
	}

	if _, err := s.playerRepo.GetByTournamentAndUser(ctx, tournamentID, userID); err == nil {
		return nil, ErrRegistrationConflict
	} else if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, err
	}

	phone, err := payments.NormalizePhone(phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if tournament.Fee == 0 {
		_, err := s.playerService.RegisterPlayer(ctx, RegisterPlayerInput{
			TournamentID: tournamentID,
			UserID:       userID,
			PhoneNumber:  phone,
		})
		if err != nil {
			return nil, err
		}
		return &payments.STKPushResponse{CustomerMessage: "Free entry, registration complete"}, nil
	}

	resp, err := s.daraja.STKPush(ctx, payments.STKPushInput{
		PhoneNumber:      phone,
		Amount:           tournament.Fee,
		AccountReference: fmt.Sprintf("TOURN-%d", tournamentID),
		TransactionDesc:  fmt.Sprintf("Entry fee for %s", tournament.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initiate entry payment: %w", err)
	}

	s.mu.Lock()
	s.prunePendingLocked()
	s.pending[resp.CheckoutRequestID] = pendingPayment{
		UserID:       userID,
		TournamentID: tournamentID,
		PhoneNumber:  phone,
		Amount:       tournament.Fee,
		CreatedAt:    time.Now(),
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "entry payment initiated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", userID),
		slog.String("checkout_request_id", resp.CheckoutRequestID))
	return resp, nil
}

func (s *paymentService) HandleCallback(ctx context.Context, payload payments.CallbackPayload) error {
	cb := payload.Body.StkCallback

	s.mu.Lock()
	entry, ok := s.pending[cb.CheckoutRequestID]
	if ok {
		delete(s.pending, cb.CheckoutRequestID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrPaymentNotFound
	}

	if cb.ResultCode != 0 {
		s.logger.WarnContext(ctx, "entry payment failed",
			slog.String("checkout_request_id", cb.CheckoutRequestID),
			slog.Int("result_code", cb.ResultCode),
			slog.String("result_desc", cb.ResultDesc))
		return ErrPaymentFailed
	}

	receipt := payload.ReceiptNumber()
	if receipt == "" {
		s.logger.ErrorContext(ctx, "successful callback without receipt number",
			slog.String("checkout_request_id", cb.CheckoutRequestID))
		return ErrPaymentFailed
	}

	_, err := s.playerService.RegisterPlayer(ctx, RegisterPlayerInput{
		TournamentID: entry.TournamentID,
		UserID:       entry.UserID,
		PhoneNumber:  entry.PhoneNumber,
		Amount:       entry.Amount,
		MpesaReceipt: receipt,
	})
	if err != nil {
		// A duplicate callback re-registers the same user; treat as done.
		if errors.Is(err, ErrRegistrationConflict) {
			return nil
		}
		return fmt.Errorf("failed to register player after payment: %w", err)
	}

	s.logger.InfoContext(ctx, "entry payment confirmed",
		slog.String("checkout_request_id", cb.CheckoutRequestID),
		slog.String("receipt", receipt),
		slog.Int("tournament_id", entry.TournamentID),
		slog.Int("user_id", entry.UserID))
	return nil
}

// prunePendingLocked drops stale entries. Caller holds s.mu.
func (s *paymentService) prunePendingLocked() {
	cutoff := time.Now().Add(-pendingPaymentTTL)
	for id, entry := range s.pending {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.pending, id)
		}
	}
}
