package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kiptoo96/esports-arena/brackets"
	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

type CreateTournamentInput struct {
	Name       string    `json:"name"`
	Game       string    `json:"game"`
	Date       time.Time `json:"date"`
	Fee        int       `json:"fee"`
	MaxPlayers int       `json:"max_players"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error)

	// CompleteTournament pays out the final match's winner: prize pool is
	// the player count times the entry fee, credited to the winner's
	// balance together with the win counters, and a leaderboard record is
	// written. All of it in one transaction, guarded against double
	// completion.
	CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	winnerRepo     repositories.WinnerRepository
	tx             repositories.Transactor
	hub            *brackets.Hub
	leaderboard    LeaderboardService
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	winnerRepo repositories.WinnerRepository,
	tx repositories.Transactor,
	hub *brackets.Hub,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		winnerRepo:     winnerRepo,
		tx:             tx,
		hub:            hub,
		leaderboard:    leaderboard,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Game = strings.TrimSpace(input.Game)
	if input.Name == "" || input.Game == "" {
		return nil, fmt.Errorf("%w: name and game are required", ErrValidationFailed)
	}
	if input.Fee < 0 {
		return nil, fmt.Errorf("%w: entry fee cannot be negative", ErrValidationFailed)
	}
	if input.MaxPlayers < 2 {
		return nil, fmt.Errorf("%w: max players must be at least 2", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:       input.Name,
		Game:       input.Game,
		Date:       input.Date,
		Fee:        input.Fee,
		Status:     models.TournamentStatusCreated,
		MaxPlayers: input.MaxPlayers,
	}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.tournamentRepo.Create(ctx, exec, tournament)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name),
		slog.String("game", tournament.Game))
	return tournament, nil
}

// GetTournament loads a tournament with its players and matches fetched in
// parallel.
func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var players []*models.Player
	var matches []*models.Match
	g.Go(func() error {
		var gErr error
		players, gErr = s.playerRepo.ListByTournament(gctx, id)
		return gErr
	})
	g.Go(func() error {
		var gErr error
		matches, gErr = s.matchRepo.ListByTournament(gctx, id, nil)
		return gErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d details: %w", id, err)
	}

	tournament.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		tournament.Players = append(tournament.Players, *p)
	}
	tournament.Matches = make([]models.Match, 0, len(matches))
	for _, m := range matches {
		tournament.Matches = append(tournament.Matches, *m)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tournamentRepo.List(ctx, limit, offset)
}

func (s *tournamentService) CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	switch tournament.Status {
	case models.TournamentStatusCompleted:
		return nil, ErrTournamentCompleted
	case models.TournamentStatusCreated:
		return nil, ErrTournamentNotInProgress
	}

	g, gctx := errgroup.WithContext(ctx)
	var final *models.Match
	var matches []*models.Match
	var playerCount int
	g.Go(func() error {
		var gErr error
		final, gErr = s.matchRepo.GetFinalMatch(gctx, tournamentID)
		return gErr
	})
	g.Go(func() error {
		var gErr error
		matches, gErr = s.matchRepo.ListByTournament(gctx, tournamentID, nil)
		return gErr
	})
	g.Go(func() error {
		var gErr error
		playerCount, gErr = s.playerRepo.CountByTournament(gctx, tournamentID)
		return gErr
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrWinnerNotDetermined
		}
		return nil, fmt.Errorf("failed to load tournament %d for completion: %w", tournamentID, err)
	}

	if final.Status != models.MatchStatusCompleted || final.WinnerID == nil {
		return nil, ErrWinnerNotDetermined
	}
	winnerID := *final.WinnerID

	winner, err := s.userRepo.GetByID(ctx, winnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrWinnerNotFound
		}
		return nil, err
	}

	prize := playerCount * tournament.Fee
	matchesPlayed, kills, deaths, headshots := winnerRunStats(matches, winnerID)
	now := time.Now()

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.tournamentRepo.Complete(ctx, exec, tournamentID, winnerID, winner.Username, prize, now); txErr != nil {
			return txErr
		}
		if txErr := s.userRepo.CreditPrize(ctx, exec, winnerID, prize); txErr != nil {
			return txErr
		}
		registration, regErr := s.playerRepo.GetByTournamentAndUser(ctx, tournamentID, winnerID)
		if regErr != nil {
			return regErr
		}
		if txErr := s.playerRepo.CreditWinnerStats(ctx, exec, registration.ID, prize); txErr != nil {
			return txErr
		}
		return s.winnerRepo.Create(ctx, exec, &models.Winner{
			TournamentID:   tournamentID,
			TournamentName: tournament.Name,
			Game:           tournament.Game,
			WinnerID:       winnerID,
			WinnerName:     winner.Username,
			Prize:          prize,
			MatchesPlayed:  matchesPlayed,
			Kills:          kills,
			Deaths:         deaths,
			Headshots:      headshots,
			Date:           now,
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentStateConflict) {
			return nil, ErrTournamentCompleted
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament completed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("winner_id", winnerID),
		slog.Int("prize", prize))

	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(strconv.Itoa(tournamentID), brackets.Message{
			Type: brackets.EventTournamentCompleted,
			Payload: map[string]interface{}{
				"tournament_id": tournamentID,
				"winner_id":     winnerID,
				"winner_name":   winner.Username,
				"prize":         prize,
			},
		})
	}

	return s.tournamentRepo.GetByID(ctx, tournamentID)
}

// winnerRunStats aggregates the winner's completed matches for the
// leaderboard record. Stat pointers stay nil when no shooter stats were
// recorded anywhere in the run.
func winnerRunStats(matches []*models.Match, winnerID int) (played int, kills, deaths, headshots *int) {
	var k, d, h int
	var hasStats bool
	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || !m.HasParticipant(winnerID) {
			continue
		}
		played++
		isPlayer1 := m.Player1ID != nil && *m.Player1ID == winnerID
		if isPlayer1 {
			if m.Player1Kills != nil {
				hasStats = true
				k += *m.Player1Kills
				d += derefInt(m.Player1Deaths)
				h += derefInt(m.Player1Headshots)
			}
		} else {
			if m.Player2Kills != nil {
				hasStats = true
				k += *m.Player2Kills
				d += derefInt(m.Player2Deaths)
				h += derefInt(m.Player2Headshots)
			}
		}
	}
	if hasStats {
		return played, &k, &d, &h
	}
	return played, nil, nil, nil
}
