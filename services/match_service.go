package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Kiptoo96/esports-arena/brackets"
	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
	"github.com/Kiptoo96/esports-arena/storage"
)

// ShooterStats carries one side's view of a shooter match result. Deaths and
// headshots are optional; nil is stored as zero.
type ShooterStats struct {
	Player1Kills     int
	Player2Kills     int
	Player1Deaths    *int
	Player2Deaths    *int
	Player1Headshots *int
	Player2Headshots *int
}

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error)

	// Two-phase reconciliation: one participant proposes, the opponent
	// confirms. Matching confirmations settle the match; mismatching ones
	// move it to disputed and open a dispute record.
	ProposeScore(ctx context.Context, matchID, userID, player1Score, player2Score int) (*models.Match, error)
	ConfirmScore(ctx context.Context, matchID, userID, player1Score, player2Score int) (*models.Match, error)
	ProposeStats(ctx context.Context, matchID, userID int, stats ShooterStats) (*models.Match, error)
	ConfirmStats(ctx context.Context, matchID, userID int, stats ShooterStats) (*models.Match, error)

	// Direct settlement, bypassing confirmation. Admin only.
	UpdateScore(ctx context.Context, matchID, player1Score, player2Score int) (*models.Match, error)
	UpdateStats(ctx context.Context, matchID int, stats ShooterStats) (*models.Match, error)

	GetDispute(ctx context.Context, id int) (*models.Dispute, error)
	ListDisputes(ctx context.Context, status models.DisputeStatus) ([]*models.Dispute, error)
	AddDisputeEvidence(ctx context.Context, disputeID int, contentType string, file io.Reader) (string, error)
	ResolveDispute(ctx context.Context, disputeID, adminID, winnerID, player1Score, player2Score int, resolution string) (*models.Match, error)
}

type matchService struct {
	matchRepo   repositories.MatchRepository
	disputeRepo repositories.DisputeRepository
	tx          repositories.Transactor
	hub         *brackets.Hub
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	disputeRepo repositories.DisputeRepository,
	tx repositories.Transactor,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		disputeRepo: disputeRepo,
		tx:          tx,
		hub:         hub,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	return s.loadMatch(ctx, id)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) loadMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

// checkOpenForResult verifies a match can still receive result input from
// the given participant.
func checkOpenForResult(match *models.Match, userID int) error {
	if !match.HasParticipant(userID) {
		return ErrNotAParticipant
	}
	switch match.Status {
	case models.MatchStatusCompleted:
		return ErrMatchAlreadyCompleted
	case models.MatchStatusDisputed:
		return ErrMatchDisputed
	}
	if match.Player1ID == nil || match.Player2ID == nil {
		return ErrMatchMissingPlayers
	}
	return nil
}

func (s *matchService) ProposeScore(ctx context.Context, matchID, userID, player1Score, player2Score int) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkOpenForResult(match, userID); err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusAwaitingConfirmation {
		return nil, ErrProposalAlreadyPending
	}
	if player1Score == player2Score {
		return nil, ErrTiedScore
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.StageScoreProposal(ctx, exec, matchID, repositories.ScoreProposal{
			Player1Score: player1Score,
			Player2Score: player2Score,
			ProposedBy:   userID,
		}, []models.MatchStatus{models.MatchStatusPending})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

func (s *matchService) ConfirmScore(ctx context.Context, matchID, userID, player1Score, player2Score int) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkOpenForResult(match, userID); err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusAwaitingConfirmation ||
		match.ProposedPlayer1Score == nil || match.ProposedPlayer2Score == nil {
		return nil, ErrNoProposalPending
	}
	if match.ProposedBy != nil && *match.ProposedBy == userID {
		return nil, ErrCannotConfirmOwnProposal
	}

	if *match.ProposedPlayer1Score != player1Score || *match.ProposedPlayer2Score != player2Score {
		return s.openDispute(ctx, match, userID, "score",
			*match.ProposedPlayer1Score, *match.ProposedPlayer2Score, player1Score, player2Score)
	}
	if player1Score == player2Score {
		return nil, ErrTiedScore
	}

	winnerID := *match.Player1ID
	if player2Score > player1Score {
		winnerID = *match.Player2ID
	}
	now := time.Now()
	completion := repositories.MatchCompletion{
		Player1Score:       &player1Score,
		Player2Score:       &player2Score,
		WinnerID:           winnerID,
		WinnerMethod:       models.WinnerMethodScore,
		Player1Confirmed:   true,
		Player2Confirmed:   true,
		Player1ConfirmedAt: &now,
		Player2ConfirmedAt: &now,
		CompletedAt:        now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.Complete(ctx, exec, matchID, completion,
			[]models.MatchStatus{models.MatchStatusAwaitingConfirmation}); txErr != nil {
			return txErr
		}
		return s.advanceWinner(ctx, exec, match, winnerID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

// openDispute moves a match to disputed and records both sides' claims. The
// proposer's numbers live on the match row, the confirmer's on the dispute;
// unit names which pair is contested ("score" or "kills").
func (s *matchService) openDispute(ctx context.Context, match *models.Match, userID int, unit string, proposed1, proposed2, confirmed1, confirmed2 int) (*models.Match, error) {
	reason := fmt.Sprintf("%s mismatch: proposed %d-%d, confirmed %d-%d",
		unit, proposed1, proposed2, confirmed1, confirmed2)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.MarkDisputed(ctx, exec, match.ID, reason); txErr != nil {
			return txErr
		}
		return s.disputeRepo.Create(ctx, exec, &models.Dispute{
			MatchID:              match.ID,
			Reason:               reason,
			Evidence:             []string{},
			DisputedPlayer1Score: confirmed1,
			DisputedPlayer2Score: confirmed2,
			Status:               models.DisputeStatusPending,
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	s.logger.WarnContext(ctx, "match moved to disputed",
		slog.Int("match_id", match.ID),
		slog.Int("confirmed_by", userID),
		slog.String("reason", reason))

	return s.reloadAndBroadcast(ctx, match.ID, brackets.EventDisputeRaised)
}

func normalizeStats(stats ShooterStats) ShooterStats {
	zero := 0
	if stats.Player1Deaths == nil {
		stats.Player1Deaths = &zero
	}
	if stats.Player2Deaths == nil {
		stats.Player2Deaths = &zero
	}
	if stats.Player1Headshots == nil {
		stats.Player1Headshots = &zero
	}
	if stats.Player2Headshots == nil {
		stats.Player2Headshots = &zero
	}
	return stats
}

func (s *matchService) ProposeStats(ctx context.Context, matchID, userID int, stats ShooterStats) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkOpenForResult(match, userID); err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusAwaitingConfirmation {
		return nil, ErrProposalAlreadyPending
	}
	if stats.Player1Kills == stats.Player2Kills {
		return nil, ErrTiedScore
	}

	stats = normalizeStats(stats)
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.StageStatsProposal(ctx, exec, matchID, repositories.StatsProposal{
			Player1Kills:     stats.Player1Kills,
			Player2Kills:     stats.Player2Kills,
			Player1Deaths:    stats.Player1Deaths,
			Player2Deaths:    stats.Player2Deaths,
			Player1Headshots: stats.Player1Headshots,
			Player2Headshots: stats.Player2Headshots,
			ProposedBy:       userID,
		}, []models.MatchStatus{models.MatchStatusPending})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

func (s *matchService) ConfirmStats(ctx context.Context, matchID, userID int, stats ShooterStats) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkOpenForResult(match, userID); err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusAwaitingConfirmation ||
		match.ProposedPlayer1Kills == nil || match.ProposedPlayer2Kills == nil {
		return nil, ErrNoProposalPending
	}
	if match.ProposedBy != nil && *match.ProposedBy == userID {
		return nil, ErrCannotConfirmOwnProposal
	}

	// Only the kill counts decide agreement; deaths and headshots are
	// auxiliary and taken from the proposal as staged.
	if *match.ProposedPlayer1Kills != stats.Player1Kills || *match.ProposedPlayer2Kills != stats.Player2Kills {
		return s.openDispute(ctx, match, userID, "kills",
			*match.ProposedPlayer1Kills, *match.ProposedPlayer2Kills, stats.Player1Kills, stats.Player2Kills)
	}
	if stats.Player1Kills == stats.Player2Kills {
		return nil, ErrTiedScore
	}

	winnerID := *match.Player1ID
	if stats.Player2Kills > stats.Player1Kills {
		winnerID = *match.Player2ID
	}
	now := time.Now()
	completion := repositories.MatchCompletion{
		Player1Kills:       match.ProposedPlayer1Kills,
		Player2Kills:       match.ProposedPlayer2Kills,
		Player1Deaths:      match.ProposedPlayer1Deaths,
		Player2Deaths:      match.ProposedPlayer2Deaths,
		Player1Headshots:   match.ProposedPlayer1Headshots,
		Player2Headshots:   match.ProposedPlayer2Headshots,
		WinnerID:           winnerID,
		WinnerMethod:       models.WinnerMethodKills,
		Player1Confirmed:   true,
		Player2Confirmed:   true,
		Player1ConfirmedAt: &now,
		Player2ConfirmedAt: &now,
		CompletedAt:        now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.Complete(ctx, exec, matchID, completion,
			[]models.MatchStatus{models.MatchStatusAwaitingConfirmation}); txErr != nil {
			return txErr
		}
		return s.advanceWinner(ctx, exec, match, winnerID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

func (s *matchService) UpdateScore(ctx context.Context, matchID, player1Score, player2Score int) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	switch match.Status {
	case models.MatchStatusCompleted:
		return nil, ErrMatchAlreadyCompleted
	case models.MatchStatusDisputed:
		return nil, ErrMatchDisputed
	}
	if match.Player1ID == nil || match.Player2ID == nil {
		return nil, ErrMatchMissingPlayers
	}
	if player1Score == player2Score {
		return nil, ErrTiedScore
	}

	winnerID := *match.Player1ID
	if player2Score > player1Score {
		winnerID = *match.Player2ID
	}
	now := time.Now()
	completion := repositories.MatchCompletion{
		Player1Score: &player1Score,
		Player2Score: &player2Score,
		WinnerID:     winnerID,
		WinnerMethod: models.WinnerMethodScore,
		CompletedAt:  now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.Complete(ctx, exec, matchID, completion,
			[]models.MatchStatus{models.MatchStatusPending, models.MatchStatusAwaitingConfirmation}); txErr != nil {
			return txErr
		}
		return s.advanceWinner(ctx, exec, match, winnerID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

func (s *matchService) UpdateStats(ctx context.Context, matchID int, stats ShooterStats) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	switch match.Status {
	case models.MatchStatusCompleted:
		return nil, ErrMatchAlreadyCompleted
	case models.MatchStatusDisputed:
		return nil, ErrMatchDisputed
	}
	if match.Player1ID == nil || match.Player2ID == nil {
		return nil, ErrMatchMissingPlayers
	}
	if stats.Player1Kills == stats.Player2Kills {
		return nil, ErrTiedScore
	}

	stats = normalizeStats(stats)
	winnerID := *match.Player1ID
	if stats.Player2Kills > stats.Player1Kills {
		winnerID = *match.Player2ID
	}
	now := time.Now()
	completion := repositories.MatchCompletion{
		Player1Kills:     &stats.Player1Kills,
		Player2Kills:     &stats.Player2Kills,
		Player1Deaths:    stats.Player1Deaths,
		Player2Deaths:    stats.Player2Deaths,
		Player1Headshots: stats.Player1Headshots,
		Player2Headshots: stats.Player2Headshots,
		WinnerID:         winnerID,
		WinnerMethod:     models.WinnerMethodKills,
		CompletedAt:      now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.Complete(ctx, exec, matchID, completion,
			[]models.MatchStatus{models.MatchStatusPending, models.MatchStatusAwaitingConfirmation}); txErr != nil {
			return txErr
		}
		return s.advanceWinner(ctx, exec, match, winnerID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	return s.reloadAndBroadcast(ctx, matchID, brackets.EventMatchUpdated)
}

func (s *matchService) GetDispute(ctx context.Context, id int) (*models.Dispute, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDisputeNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return dispute, nil
}

func (s *matchService) ListDisputes(ctx context.Context, status models.DisputeStatus) ([]*models.Dispute, error) {
	return s.disputeRepo.ListByStatus(ctx, status)
}

func (s *matchService) AddDisputeEvidence(ctx context.Context, disputeID int, contentType string, file io.Reader) (string, error) {
	dispute, err := s.GetDispute(ctx, disputeID)
	if err != nil {
		return "", err
	}
	if dispute.Status != models.DisputeStatusPending {
		return "", ErrMatchNotDisputed
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("disputes/%d/%s%s", disputeID, uuid.NewString(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload dispute evidence: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.disputeRepo.AppendEvidence(ctx, exec, disputeID, key)
	})
	if err != nil {
		// The row vanished; drop the orphaned object, best effort.
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to delete orphaned evidence object",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return "", err
	}

	return result.Location, nil
}

func (s *matchService) ResolveDispute(ctx context.Context, disputeID, adminID, winnerID, player1Score, player2Score int, resolution string) (*models.Match, error) {
	dispute, err := s.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status != models.DisputeStatusPending {
		return nil, ErrMatchNotDisputed
	}

	match, err := s.loadMatch(ctx, dispute.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusDisputed {
		return nil, ErrMatchNotDisputed
	}
	if !match.HasParticipant(winnerID) {
		return nil, ErrNotAParticipant
	}
	if player1Score == player2Score {
		return nil, ErrTiedScore
	}

	// The winner follows from the final scores, same as every other
	// settlement path; a ruling naming the losing side is malformed.
	derivedWinner := *match.Player1ID
	if player2Score > player1Score {
		derivedWinner = *match.Player2ID
	}
	if winnerID != derivedWinner {
		return nil, fmt.Errorf("%w: winner does not match the final scores", ErrValidationFailed)
	}

	now := time.Now()
	completion := repositories.MatchCompletion{
		Player1Score:  &player1Score,
		Player2Score:  &player2Score,
		WinnerID:      winnerID,
		WinnerMethod:  models.WinnerMethodScore,
		DisputeReason: &resolution,
		CompletedAt:   now,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.Complete(ctx, exec, match.ID, completion,
			[]models.MatchStatus{models.MatchStatusDisputed}); txErr != nil {
			return txErr
		}
		if txErr := s.disputeRepo.Resolve(ctx, exec, disputeID, adminID, resolution, now); txErr != nil {
			return txErr
		}
		return s.advanceWinner(ctx, exec, match, winnerID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchStateConflict) ||
			errors.Is(err, repositories.ErrDisputeStateConflict) {
			return nil, ErrMatchConflict
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "dispute resolved",
		slog.Int("dispute_id", disputeID),
		slog.Int("match_id", match.ID),
		slog.Int("resolved_by", adminID),
		slog.Int("winner_id", winnerID))

	return s.reloadAndBroadcast(ctx, match.ID, brackets.EventMatchUpdated)
}

// advanceWinner seats the winner in the successor match's first open slot.
// When the successor has a single feeder (the previous round had an odd
// number of matches), its second slot can never fill, so the seated player
// wins the successor immediately and advances again.
func (s *matchService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerID int) error {
	if match.NextMatchID == nil {
		return nil
	}

	// Round, match number and the successor link are immutable after
	// bracket generation, so reading outside the transaction is safe.
	next, err := s.matchRepo.GetByID(ctx, *match.NextMatchID)
	if err != nil {
		return fmt.Errorf("failed to load successor match %d: %w", *match.NextMatchID, err)
	}

	slot, err := s.matchRepo.ClaimSlot(ctx, exec, next.ID, winnerID)
	if err != nil {
		return err
	}
	if slot == 0 {
		// Already seated, or both slots taken by a concurrent settlement
		// of the same match. Advancement is idempotent.
		s.logger.DebugContext(ctx, "winner already seated in successor",
			slog.Int("match_id", next.ID), slog.Int("winner_id", winnerID))
		return nil
	}

	prevCount, err := s.matchRepo.CountByTournamentAndRound(ctx, next.TournamentID, next.Round-1)
	if err != nil {
		return err
	}
	if 2*next.MatchNumber > prevCount {
		// Single feeder: no opponent will ever arrive.
		completion := repositories.MatchCompletion{
			WinnerID:     winnerID,
			WinnerMethod: models.WinnerMethodBye,
			CompletedAt:  time.Now(),
		}
		if err := s.matchRepo.Complete(ctx, exec, next.ID, completion,
			[]models.MatchStatus{models.MatchStatusPending}); err != nil {
			return err
		}
		return s.advanceWinner(ctx, exec, next, winnerID)
	}
	return nil
}

func (s *matchService) reloadAndBroadcast(ctx context.Context, matchID int, event string) (*models.Match, error) {
	match, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(strconv.Itoa(match.TournamentID), brackets.Message{
			Type:    event,
			Payload: match,
		})
	}
	return match, nil
}
