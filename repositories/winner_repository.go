package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kiptoo96/esports-arena/models"
)

type WinnerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, winner *models.Winner) error
	// List returns the most recent winners, optionally filtered by game.
	List(ctx context.Context, game *string, limit int) ([]*models.Winner, error)
	TopByPrize(ctx context.Context, limit int) ([]*models.Winner, error)
}

type postgresWinnerRepository struct {
	db *sql.DB
}

func NewPostgresWinnerRepository(db *sql.DB) WinnerRepository {
	return &postgresWinnerRepository{db: db}
}

const winnerColumns = `id, tournament_id, tournament_name, game, winner_id, winner_name,
       prize, matches_played, kills, deaths, headshots, date`

func (r *postgresWinnerRepository) Create(ctx context.Context, exec SQLExecutor, w *models.Winner) error {
	query := `
		INSERT INTO winners (tournament_id, tournament_name, game, winner_id, winner_name,
		                     prize, matches_played, kills, deaths, headshots, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		w.TournamentID,
		w.TournamentName,
		w.Game,
		w.WinnerID,
		w.WinnerName,
		w.Prize,
		w.MatchesPlayed,
		w.Kills,
		w.Deaths,
		w.Headshots,
		w.Date,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("failed to insert winner record: %w", err)
	}
	return nil
}

func (r *postgresWinnerRepository) List(ctx context.Context, game *string, limit int) ([]*models.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners`
	args := []interface{}{}
	if game != nil {
		query += ` WHERE game = $1`
		args = append(args, *game)
	}
	query += fmt.Sprintf(` ORDER BY date DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryWinners(ctx, query, args...)
}

func (r *postgresWinnerRepository) TopByPrize(ctx context.Context, limit int) ([]*models.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners ORDER BY prize DESC, date DESC LIMIT $1`
	return r.queryWinners(ctx, query, limit)
}

func (r *postgresWinnerRepository) queryWinners(ctx context.Context, query string, args ...interface{}) ([]*models.Winner, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	winners := make([]*models.Winner, 0)
	for rows.Next() {
		w := &models.Winner{}
		if scanErr := rows.Scan(
			&w.ID,
			&w.TournamentID,
			&w.TournamentName,
			&w.Game,
			&w.WinnerID,
			&w.WinnerName,
			&w.Prize,
			&w.MatchesPlayed,
			&w.Kills,
			&w.Deaths,
			&w.Headshots,
			&w.Date,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan winner row: %w", scanErr)
		}
		winners = append(winners, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during winner rows iteration: %w", err)
	}
	return winners, nil
}
