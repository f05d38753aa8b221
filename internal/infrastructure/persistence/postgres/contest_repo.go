package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ContestRepository implements contest.Repository for PostgreSQL.
type ContestRepository struct {
	conn *Connection
}

// NewContestRepository creates a new ContestRepository.
func NewContestRepository(conn *Connection) *ContestRepository {
	return &ContestRepository{conn: conn}
}

const contestColumns = `
	id, name, short_name, start_time, end_time,
	freeze_time, unfreeze_time, deactivate_time, enabled`

// GetByID returns a contest by ID.
func (r *ContestRepository) GetByID(ctx context.Context, id shared.ContestID) (*contest.Contest, error) {
	query := `SELECT` + contestColumns + `
		FROM contests
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id.Int64())
	c, err := scanContest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest %d: %w", id, err)
	}

	return c, nil
}

// ListActive returns all enabled contests that have not been deactivated.
func (r *ContestRepository) ListActive(ctx context.Context) ([]*contest.Contest, error) {
	query := `SELECT` + contestColumns + `
		FROM contests
		WHERE enabled AND (deactivate_time IS NULL OR deactivate_time > NOW())
		ORDER BY start_time, id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active contests: %w", err)
	}
	defer rows.Close()

	var contests []*contest.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contest row: %w", err)
		}
		contests = append(contests, c)
	}

	return contests, rows.Err()
}

func scanContest(row pgx.Row) (*contest.Contest, error) {
	var c contest.Contest

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ShortName,
		&c.StartTime,
		&c.EndTime,
		&c.FreezeTime,
		&c.UnfreezeTime,
		&c.DeactivateTime,
		&c.Enabled,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
