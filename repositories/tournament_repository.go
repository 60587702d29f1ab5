package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kiptoo96/esports-arena/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentStateConflict = errors.New("tournament was modified concurrently or is in the wrong state")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	// MarkBracketGenerated stamps the bracket type and moves the tournament
	// to in_progress, guarded against a bracket already existing.
	MarkBracketGenerated(ctx context.Context, exec SQLExecutor, id int, bracketType string) error
	// Complete writes the winner fields and the completed status, guarded
	// against double completion.
	Complete(ctx context.Context, exec SQLExecutor, id int, winnerID int, winnerName string, prize int, completedAt time.Time) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, game, date, fee, status, bracket_type, max_players,
       winner_id, winner_name, winner_prize, completed_at, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, game, date, fee, status, max_players)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.Name,
		t.Game,
		t.Date,
		t.Fee,
		t.Status,
		t.MaxPlayers,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Game,
		&t.Date,
		&t.Fee,
		&t.Status,
		&t.BracketType,
		&t.MaxPlayers,
		&t.WinnerID,
		&t.WinnerName,
		&t.WinnerPrize,
		&t.CompletedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments ORDER BY date DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if scanErr := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Game,
			&t.Date,
			&t.Fee,
			&t.Status,
			&t.BracketType,
			&t.MaxPlayers,
			&t.WinnerID,
			&t.WinnerName,
			&t.WinnerPrize,
			&t.CompletedAt,
			&t.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) MarkBracketGenerated(ctx context.Context, exec SQLExecutor, id int, bracketType string) error {
	query := `
		UPDATE tournaments
		SET bracket_type = $1, status = $2
		WHERE id = $3 AND status = $4`
	result, err := exec.ExecContext(ctx, query, bracketType, models.TournamentStatusInProgress, id, models.TournamentStatusCreated)
	if err != nil {
		return fmt.Errorf("failed to mark bracket generated for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}

func (r *postgresTournamentRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winnerID int, winnerName string, prize int, completedAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, winner_id = $2, winner_name = $3, winner_prize = $4, completed_at = $5
		WHERE id = $6 AND status <> $1`
	result, err := exec.ExecContext(ctx, query, models.TournamentStatusCompleted, winnerID, winnerName, prize, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStateConflict)
}
