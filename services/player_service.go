package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

// RegisterPlayerInput seats a paid user into a tournament. The receipt comes
// from the payment callback; registration never happens without one unless
// the entry is free.
type RegisterPlayerInput struct {
	TournamentID int
	UserID       int
	PhoneNumber  string
	Amount       int
	MpesaReceipt string
}

type PlayerService interface {
	RegisterPlayer(ctx context.Context, input RegisterPlayerInput) (*models.Player, error)
	ListPlayers(ctx context.Context, tournamentID int) ([]*models.Player, error)
	GetRegistration(ctx context.Context, tournamentID, userID int) (*models.Player, error)
}

type playerService struct {
	playerRepo     repositories.PlayerRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	tx             repositories.Transactor
	logger         *slog.Logger
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	tx repositories.Transactor,
	logger *slog.Logger,
) PlayerService {
	return &playerService{
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		tx:             tx,
		logger:         logger,
	}
}

func (s *playerService) RegisterPlayer(ctx context.Context, input RegisterPlayerInput) (*models.Player, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Status != models.TournamentStatusCreated {
		return nil, ErrBracketAlreadyGenerated
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	count, err := s.playerRepo.CountByTournament(ctx, input.TournamentID)
	if err != nil {
		return nil, err
	}
	if count >= tournament.MaxPlayers {
		return nil, ErrTournamentFull
	}

	player := &models.Player{
		PublicID:     uuid.NewString(),
		UserID:       input.UserID,
		Name:         user.Username,
		TournamentID: input.TournamentID,
		PhoneNumber:  input.PhoneNumber,
		Amount:       input.Amount,
		MpesaReceipt: input.MpesaReceipt,
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.playerRepo.Create(ctx, exec, player); txErr != nil {
			return txErr
		}
		return s.userRepo.IncrementTournamentsPlayed(ctx, exec, input.UserID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerRegistrationConflict) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	s.logger.InfoContext(ctx, "player registered",
		slog.Int("tournament_id", input.TournamentID),
		slog.Int("user_id", input.UserID),
		slog.String("receipt", input.MpesaReceipt))
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	return s.playerRepo.ListByTournament(ctx, tournamentID)
}

func (s *playerService) GetRegistration(ctx context.Context, tournamentID, userID int) (*models.Player, error) {
	player, err := s.playerRepo.GetByTournamentAndUser(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}
