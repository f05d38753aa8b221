package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROBLEM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProblemRepository implements problem.Repository for PostgreSQL.
type ProblemRepository struct {
	conn *Connection
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(conn *Connection) *ProblemRepository {
	return &ProblemRepository{conn: conn}
}

const problemColumns = `
	contest_id, problem_id, short_name, name, points, color, allow_submit`

// ListForContest returns the contest's submittable problems ordered by label.
func (r *ProblemRepository) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*problem.ContestProblem, error) {
	query := `SELECT` + problemColumns + `
		FROM contest_problems
		WHERE contest_id = $1 AND allow_submit
		ORDER BY short_name, problem_id
	`

	rows, err := r.conn.Query(ctx, query, contestID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list problems for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var problems []*problem.ContestProblem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan problem row: %w", err)
		}
		problems = append(problems, p)
	}

	return problems, rows.Err()
}

// GetByID returns the contest attachment of a problem.
func (r *ProblemRepository) GetByID(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID) (*problem.ContestProblem, error) {
	query := `SELECT` + problemColumns + `
		FROM contest_problems
		WHERE contest_id = $1 AND problem_id = $2
	`

	row := r.conn.QueryRow(ctx, query, contestID.Int64(), problemID.Int64())
	p, err := scanProblem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrProblemNotFound
		}
		return nil, fmt.Errorf("failed to get problem %d in contest %d: %w", problemID, contestID, err)
	}

	return p, nil
}

func scanProblem(row pgx.Row) (*problem.ContestProblem, error) {
	var p problem.ContestProblem

	err := row.Scan(
		&p.ContestID,
		&p.ProblemID,
		&p.ShortName,
		&p.Name,
		&p.Points,
		&p.Color,
		&p.AllowSubmit,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
