package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchStateConflict is the zero-rows result of a guarded update:
	// the match is not in any of the expected states, usually because a
	// concurrent writer got there first.
	ErrMatchStateConflict = errors.New("match is not in an expected state")
)

// ScoreProposal stages a score pair pending the opponent's confirmation.
type ScoreProposal struct {
	Player1Score int
	Player2Score int
	ProposedBy   int
}

// StatsProposal stages a shooter stat tuple pending confirmation.
type StatsProposal struct {
	Player1Kills     int
	Player2Kills     int
	Player1Deaths    *int
	Player2Deaths    *int
	Player1Headshots *int
	Player2Headshots *int
	ProposedBy       int
}

// MatchCompletion is the full set of fields written when a match settles,
// shared by the confirm, direct-update and dispute-resolution paths.
type MatchCompletion struct {
	Player1Score     *int
	Player2Score     *int
	Player1Kills     *int
	Player2Kills     *int
	Player1Deaths    *int
	Player2Deaths    *int
	Player1Headshots *int
	Player2Headshots *int

	WinnerID     int
	WinnerMethod models.WinnerMethod

	Player1Confirmed   bool
	Player2Confirmed   bool
	Player1ConfirmedAt *time.Time
	Player2ConfirmedAt *time.Time

	// Resolution note on the admin path, nil elsewhere.
	DisputeReason *string

	CompletedAt time.Time
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error)
	CountByTournamentAndRound(ctx context.Context, tournamentID, round int) (int, error)
	// GetFinalMatch returns the match with the maximum round number.
	GetFinalMatch(ctx context.Context, tournamentID int) (*models.Match, error)
	// SetNextMatchID links a match to its successor. Write-once at bracket
	// generation time.
	SetNextMatchID(ctx context.Context, exec SQLExecutor, matchID, nextMatchID int) error

	// All transition methods below are compare-and-set: the update applies
	// only while the match status is one of fromStatuses, and
	// ErrMatchStateConflict is returned on zero rows.
	StageScoreProposal(ctx context.Context, exec SQLExecutor, id int, proposal ScoreProposal, fromStatuses []models.MatchStatus) error
	StageStatsProposal(ctx context.Context, exec SQLExecutor, id int, proposal StatsProposal, fromStatuses []models.MatchStatus) error
	Complete(ctx context.Context, exec SQLExecutor, id int, completion MatchCompletion, fromStatuses []models.MatchStatus) error
	MarkDisputed(ctx context.Context, exec SQLExecutor, id int, reason string) error

	// ClaimSlot atomically seats winnerID in the first open slot of the
	// match. Returns the claimed slot (1 or 2), or 0 when both slots are
	// already taken or the winner is already seated.
	ClaimSlot(ctx context.Context, exec SQLExecutor, matchID, winnerID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round, match_number, player1_id, player2_id,
       player1_score, player2_score,
       player1_kills, player2_kills, player1_deaths, player2_deaths, player1_headshots, player2_headshots,
       proposed_player1_score, proposed_player2_score,
       proposed_player1_kills, proposed_player2_kills, proposed_player1_deaths, proposed_player2_deaths,
       proposed_player1_headshots, proposed_player2_headshots, proposed_by,
       player1_confirmed, player2_confirmed, player1_confirmed_at, player2_confirmed_at,
       winner_id, winner_method, status, dispute_reason, next_match_id, completed_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, round, match_number, player1_id, player2_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		m.TournamentID,
		m.Round,
		m.MatchNumber,
		m.Player1ID,
		m.Player2ID,
		m.Status,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func scanMatch(scanner interface{ Scan(dest ...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := scanner.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.MatchNumber,
		&m.Player1ID,
		&m.Player2ID,
		&m.Player1Score,
		&m.Player2Score,
		&m.Player1Kills,
		&m.Player2Kills,
		&m.Player1Deaths,
		&m.Player2Deaths,
		&m.Player1Headshots,
		&m.Player2Headshots,
		&m.ProposedPlayer1Score,
		&m.ProposedPlayer2Score,
		&m.ProposedPlayer1Kills,
		&m.ProposedPlayer2Kills,
		&m.ProposedPlayer1Deaths,
		&m.ProposedPlayer2Deaths,
		&m.ProposedPlayer1Headshots,
		&m.ProposedPlayer2Headshots,
		&m.ProposedBy,
		&m.Player1Confirmed,
		&m.Player2Confirmed,
		&m.Player1ConfirmedAt,
		&m.Player2ConfirmedAt,
		&m.WinnerID,
		&m.WinnerMethod,
		&m.Status,
		&m.DisputeReason,
		&m.NextMatchID,
		&m.CompletedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round != nil {
		query += ` AND round = $2`
		args = append(args, *round)
	}
	query += ` ORDER BY round ASC, match_number ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByTournamentAndRound(ctx context.Context, tournamentID, round int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round = $2`,
		tournamentID, round,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) GetFinalMatch(ctx context.Context, tournamentID int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1
		ORDER BY round DESC, match_number ASC
		LIMIT 1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan final match for tournament %d: %w", tournamentID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) SetNextMatchID(ctx context.Context, exec SQLExecutor, matchID, nextMatchID int) error {
	query := `UPDATE matches SET next_match_id = $1 WHERE id = $2 AND next_match_id IS NULL`
	result, err := exec.ExecContext(ctx, query, nextMatchID, matchID)
	if err != nil {
		return fmt.Errorf("failed to link match %d to next match: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func statusStrings(statuses []models.MatchStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *postgresMatchRepository) StageScoreProposal(ctx context.Context, exec SQLExecutor, id int, p ScoreProposal, fromStatuses []models.MatchStatus) error {
	query := `
		UPDATE matches
		SET proposed_player1_score = $1,
		    proposed_player2_score = $2,
		    proposed_by = $3,
		    status = $4
		WHERE id = $5 AND status = ANY($6)`
	result, err := exec.ExecContext(ctx, query,
		p.Player1Score, p.Player2Score, p.ProposedBy,
		models.MatchStatusAwaitingConfirmation, id, pq.Array(statusStrings(fromStatuses)),
	)
	if err != nil {
		return fmt.Errorf("failed to stage score proposal for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) StageStatsProposal(ctx context.Context, exec SQLExecutor, id int, p StatsProposal, fromStatuses []models.MatchStatus) error {
	query := `
		UPDATE matches
		SET proposed_player1_kills = $1,
		    proposed_player2_kills = $2,
		    proposed_player1_deaths = $3,
		    proposed_player2_deaths = $4,
		    proposed_player1_headshots = $5,
		    proposed_player2_headshots = $6,
		    proposed_by = $7,
		    status = $8
		WHERE id = $9 AND status = ANY($10)`
	result, err := exec.ExecContext(ctx, query,
		p.Player1Kills, p.Player2Kills,
		p.Player1Deaths, p.Player2Deaths,
		p.Player1Headshots, p.Player2Headshots,
		p.ProposedBy,
		models.MatchStatusAwaitingConfirmation, id, pq.Array(statusStrings(fromStatuses)),
	)
	if err != nil {
		return fmt.Errorf("failed to stage stats proposal for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, c MatchCompletion, fromStatuses []models.MatchStatus) error {
	query := `
		UPDATE matches
		SET player1_score = COALESCE($1, player1_score),
		    player2_score = COALESCE($2, player2_score),
		    player1_kills = COALESCE($3, player1_kills),
		    player2_kills = COALESCE($4, player2_kills),
		    player1_deaths = COALESCE($5, player1_deaths),
		    player2_deaths = COALESCE($6, player2_deaths),
		    player1_headshots = COALESCE($7, player1_headshots),
		    player2_headshots = COALESCE($8, player2_headshots),
		    winner_id = $9,
		    winner_method = $10,
		    player1_confirmed = $11,
		    player2_confirmed = $12,
		    player1_confirmed_at = $13,
		    player2_confirmed_at = $14,
		    dispute_reason = COALESCE($15, dispute_reason),
		    completed_at = $16,
		    status = $17
		WHERE id = $18 AND status = ANY($19)`
	result, err := exec.ExecContext(ctx, query,
		c.Player1Score, c.Player2Score,
		c.Player1Kills, c.Player2Kills,
		c.Player1Deaths, c.Player2Deaths,
		c.Player1Headshots, c.Player2Headshots,
		c.WinnerID, c.WinnerMethod,
		c.Player1Confirmed, c.Player2Confirmed,
		c.Player1ConfirmedAt, c.Player2ConfirmedAt,
		c.DisputeReason,
		c.CompletedAt,
		models.MatchStatusCompleted,
		id, pq.Array(statusStrings(fromStatuses)),
	)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) MarkDisputed(ctx context.Context, exec SQLExecutor, id int, reason string) error {
	query := `
		UPDATE matches
		SET status = $1, dispute_reason = $2
		WHERE id = $3 AND status = $4`
	result, err := exec.ExecContext(ctx, query,
		models.MatchStatusDisputed, reason, id, models.MatchStatusAwaitingConfirmation,
	)
	if err != nil {
		return fmt.Errorf("failed to mark match %d disputed: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchStateConflict)
}

func (r *postgresMatchRepository) ClaimSlot(ctx context.Context, exec SQLExecutor, matchID, winnerID int) (int, error) {
	// Slot 1 first. The guards make both claims no-ops when the winner is
	// already seated, so re-running a completion cannot duplicate a player.
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET player1_id = $1
		 WHERE id = $2 AND player1_id IS NULL AND (player2_id IS NULL OR player2_id <> $1)`,
		winnerID, matchID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim slot 1 of match %d: %w", matchID, err)
	}
	if n, raErr := result.RowsAffected(); raErr != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", raErr)
	} else if n > 0 {
		return 1, nil
	}

	result, err = exec.ExecContext(ctx,
		`UPDATE matches SET player2_id = $1
		 WHERE id = $2 AND player2_id IS NULL AND player1_id IS NOT NULL AND player1_id <> $1`,
		winnerID, matchID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim slot 2 of match %d: %w", matchID, err)
	}
	if n, raErr := result.RowsAffected(); raErr != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", raErr)
	} else if n > 0 {
		return 2, nil
	}
	return 0, nil
}
