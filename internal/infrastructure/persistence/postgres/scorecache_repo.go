package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE CACHE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ScoreCacheRepository implements scoring.ScoreRepository for PostgreSQL.
// Rows are replaced whole on every recompute; there are no partial updates.
type ScoreCacheRepository struct {
	conn *Connection
}

// NewScoreCacheRepository creates a new ScoreCacheRepository.
func NewScoreCacheRepository(conn *Connection) *ScoreCacheRepository {
	return &ScoreCacheRepository{conn: conn}
}

const scoreCacheColumns = `
	contest_id, team_id, problem_id,
	attempts_public, pending_public, solvetime_public, is_correct_public,
	attempts_restricted, pending_restricted, solvetime_restricted, is_correct_restricted,
	is_first_to_solve`

// Upsert replaces a score cache row by its (contest, team, problem) key.
func (r *ScoreCacheRepository) Upsert(ctx context.Context, row *scoring.ScoreRow) error {
	query := `
		INSERT INTO scorecache (` + scoreCacheColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (contest_id, team_id, problem_id) DO UPDATE SET
			attempts_public = EXCLUDED.attempts_public,
			pending_public = EXCLUDED.pending_public,
			solvetime_public = EXCLUDED.solvetime_public,
			is_correct_public = EXCLUDED.is_correct_public,
			attempts_restricted = EXCLUDED.attempts_restricted,
			pending_restricted = EXCLUDED.pending_restricted,
			solvetime_restricted = EXCLUDED.solvetime_restricted,
			is_correct_restricted = EXCLUDED.is_correct_restricted,
			is_first_to_solve = EXCLUDED.is_first_to_solve
	`

	_, err := r.conn.Exec(ctx, query,
		row.ContestID.Int64(), row.TeamID.Int64(), row.ProblemID.Int64(),
		row.Public.Attempts, row.Public.Pending,
		row.Public.SolveTime.Float64(), row.Public.Correct,
		row.Restricted.Attempts, row.Restricted.Pending,
		row.Restricted.SolveTime.Float64(), row.Restricted.Correct,
		row.FirstToSolve,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score cache row %s: %w", row, err)
	}

	return nil
}

// Get returns a score cache row by its key.
func (r *ScoreCacheRepository) Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (*scoring.ScoreRow, error) {
	query := `SELECT` + scoreCacheColumns + `
		FROM scorecache
		WHERE contest_id = $1 AND team_id = $2 AND problem_id = $3
	`

	row := r.conn.QueryRow(ctx, query, contestID.Int64(), teamID.Int64(), problemID.Int64())
	sr, err := scanScoreRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrScoreRowNotFound
		}
		return nil, fmt.Errorf("failed to get score cache row: %w", err)
	}

	return sr, nil
}

// ListForTeam returns all score cache rows of one team in a contest.
func (r *ScoreCacheRepository) ListForTeam(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) ([]*scoring.ScoreRow, error) {
	query := `SELECT` + scoreCacheColumns + `
		FROM scorecache
		WHERE contest_id = $1 AND team_id = $2
		ORDER BY problem_id
	`

	return r.list(ctx, query, contestID.Int64(), teamID.Int64())
}

// ListForContest returns all score cache rows of a contest.
func (r *ScoreCacheRepository) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*scoring.ScoreRow, error) {
	query := `SELECT` + scoreCacheColumns + `
		FROM scorecache
		WHERE contest_id = $1
		ORDER BY team_id, problem_id
	`

	return r.list(ctx, query, contestID.Int64())
}

// SolveTimesForTeams returns the solve times of the given teams in the
// requested variant, keyed by team.
func (r *ScoreCacheRepository) SolveTimesForTeams(ctx context.Context, contestID shared.ContestID, teamIDs []shared.TeamID, variant scoring.Variant) (map[shared.TeamID][]shared.ContestSeconds, error) {
	times := make(map[shared.TeamID][]shared.ContestSeconds, len(teamIDs))
	if len(teamIDs) == 0 {
		return times, nil
	}

	timeCol, correctCol := "solvetime_public", "is_correct_public"
	if variant == scoring.VariantRestricted {
		timeCol, correctCol = "solvetime_restricted", "is_correct_restricted"
	}

	query := fmt.Sprintf(`
		SELECT team_id, %s
		FROM scorecache
		WHERE contest_id = $1 AND team_id = ANY($2) AND %s
		ORDER BY team_id, problem_id
	`, timeCol, correctCol)

	ids := make([]int64, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = id.Int64()
	}

	rows, err := r.conn.Query(ctx, query, contestID.Int64(), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query solve times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			teamID    shared.TeamID
			solveTime shared.ContestSeconds
		)
		if err := rows.Scan(&teamID, &solveTime); err != nil {
			return nil, fmt.Errorf("failed to scan solve time row: %w", err)
		}
		times[teamID] = append(times[teamID], solveTime)
	}

	return times, rows.Err()
}

// Truncate removes all score cache rows of a contest.
func (r *ScoreCacheRepository) Truncate(ctx context.Context, contestID shared.ContestID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM scorecache WHERE contest_id = $1`, contestID.Int64())
	if err != nil {
		return fmt.Errorf("failed to truncate score cache for contest %d: %w", contestID, err)
	}
	return nil
}

func (r *ScoreCacheRepository) list(ctx context.Context, query string, args ...interface{}) ([]*scoring.ScoreRow, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list score cache rows: %w", err)
	}
	defer rows.Close()

	var result []*scoring.ScoreRow
	for rows.Next() {
		sr, err := scanScoreRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score cache row: %w", err)
		}
		result = append(result, sr)
	}

	return result, rows.Err()
}

func scanScoreRow(row pgx.Row) (*scoring.ScoreRow, error) {
	var sr scoring.ScoreRow

	err := row.Scan(
		&sr.ContestID, &sr.TeamID, &sr.ProblemID,
		&sr.Public.Attempts, &sr.Public.Pending,
		&sr.Public.SolveTime, &sr.Public.Correct,
		&sr.Restricted.Attempts, &sr.Restricted.Pending,
		&sr.Restricted.SolveTime, &sr.Restricted.Correct,
		&sr.FirstToSolve,
	)
	if err != nil {
		return nil, err
	}

	return &sr, nil
}
