package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/Kiptoo96/esports-arena/brackets"
	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

type BracketService interface {
	// GenerateBracket seeds all registered players into a shuffled
	// single-elimination tree, persists every match and moves the
	// tournament to in_progress, all in one transaction.
	GenerateBracket(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	tx             repositories.Transactor
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	tx repositories.Transactor,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		tx:             tx,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	switch tournament.Status {
	case models.TournamentStatusInProgress:
		return nil, ErrBracketAlreadyGenerated
	case models.TournamentStatusCompleted:
		return nil, ErrTournamentCompleted
	}
	if tournament.BracketType != nil {
		return nil, ErrBracketAlreadyGenerated
	}

	players, err := s.playerRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for tournament %d: %w", tournamentID, err)
	}
	if len(players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	seeding := make([]int, len(players))
	for i, p := range players {
		seeding[i] = p.UserID
	}
	rand.Shuffle(len(seeding), func(i, j int) {
		seeding[i], seeding[j] = seeding[j], seeding[i]
	})

	tree, err := brackets.BuildSingleElimination(seeding)
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientPlayers) {
			return nil, ErrInsufficientPlayers
		}
		return nil, err
	}

	roundCounts := make(map[int]int)
	for _, node := range tree {
		roundCounts[node.Round]++
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		ids := make([]int, len(tree))
		for i, node := range tree {
			match := &models.Match{
				TournamentID: tournamentID,
				Round:        node.Round,
				MatchNumber:  node.MatchNumber,
				Player1ID:    node.Player1ID,
				Player2ID:    node.Player2ID,
				Status:       models.MatchStatusPending,
			}
			if txErr := s.matchRepo.Create(ctx, exec, match); txErr != nil {
				return txErr
			}
			ids[i] = match.ID
		}

		for i, node := range tree {
			if node.NextIndex == nil {
				continue
			}
			if txErr := s.matchRepo.SetNextMatchID(ctx, exec, ids[i], ids[*node.NextIndex]); txErr != nil {
				return txErr
			}
		}

		// settleByeChain settles a match nobody can contest and walks the
		// winner up the tree: each successor that has a single feeder in
		// the round below is itself uncontested.
		var settleByeChain func(idx, winnerID int) error
		settleByeChain = func(idx, winnerID int) error {
			completion := repositories.MatchCompletion{
				WinnerID:     winnerID,
				WinnerMethod: models.WinnerMethodBye,
				CompletedAt:  time.Now(),
			}
			if txErr := s.matchRepo.Complete(ctx, exec, ids[idx], completion,
				[]models.MatchStatus{models.MatchStatusPending}); txErr != nil {
				return txErr
			}
			next := tree[idx].NextIndex
			if next == nil {
				return nil
			}
			if _, txErr := s.matchRepo.ClaimSlot(ctx, exec, ids[*next], winnerID); txErr != nil {
				return txErr
			}
			if 2*tree[*next].MatchNumber > roundCounts[tree[*next].Round-1] {
				return settleByeChain(*next, winnerID)
			}
			return nil
		}

		for i, node := range tree {
			if node.IsBye && node.Player1ID != nil {
				if txErr := settleByeChain(i, *node.Player1ID); txErr != nil {
					return txErr
				}
			}
		}

		return s.tournamentRepo.MarkBracketGenerated(ctx, exec, tournamentID, models.BracketTypeSingleElimination)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentStateConflict) {
			return nil, ErrBracketAlreadyGenerated
		}
		return nil, err
	}

	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reload bracket for tournament %d: %w", tournamentID, err)
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players", len(players)),
		slog.Int("matches", len(matches)))

	if s.hub != nil {
		s.hub.BroadcastToRoom(strconv.Itoa(tournamentID), brackets.Message{
			Type:    brackets.EventBracketGenerated,
			Payload: matches,
		})
	}
	return matches, nil
}
