package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound             = errors.New("player registration not found")
	ErrPlayerRegistrationConflict = errors.New("user is already registered for this tournament")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Player, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// CreditWinnerStats bumps the per-registration aggregates at tournament
	// completion.
	CreditWinnerStats(ctx context.Context, exec SQLExecutor, id int, earnings int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, public_id, user_id, name, tournament_id, phone_number, amount,
       mpesa_receipt, wins, total_earnings, tournaments_played, created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (public_id, user_id, name, tournament_id, phone_number, amount, mpesa_receipt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, wins, total_earnings, tournaments_played, created_at`

	err := exec.QueryRowContext(ctx, query,
		p.PublicID,
		p.UserID,
		p.Name,
		p.TournamentID,
		p.PhoneNumber,
		p.Amount,
		p.MpesaReceipt,
	).Scan(&p.ID, &p.Wins, &p.TotalEarnings, &p.TournamentsPlayed, &p.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "players_tournament_id_user_id_key" {
			return ErrPlayerRegistrationConflict
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE tournament_id = $1 AND user_id = $2`

	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&p.ID,
		&p.PublicID,
		&p.UserID,
		&p.Name,
		&p.TournamentID,
		&p.PhoneNumber,
		&p.Amount,
		&p.MpesaReceipt,
		&p.Wins,
		&p.TotalEarnings,
		&p.TournamentsPlayed,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player for tournament %d, user %d: %w", tournamentID, userID, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE tournament_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p := &models.Player{}
		if scanErr := rows.Scan(
			&p.ID,
			&p.PublicID,
			&p.UserID,
			&p.Name,
			&p.TournamentID,
			&p.PhoneNumber,
			&p.Amount,
			&p.MpesaReceipt,
			&p.Wins,
			&p.TotalEarnings,
			&p.TournamentsPlayed,
			&p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count players for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresPlayerRepository) CreditWinnerStats(ctx context.Context, exec SQLExecutor, id int, earnings int) error {
	query := `
		UPDATE players
		SET wins = wins + 1, total_earnings = total_earnings + $1
		WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, earnings, id)
	if err != nil {
		return fmt.Errorf("failed to credit winner stats for player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
