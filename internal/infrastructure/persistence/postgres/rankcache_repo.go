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
// RANK CACHE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RankCacheRepository implements scoring.RankRepository for PostgreSQL.
type RankCacheRepository struct {
	conn *Connection
}

// NewRankCacheRepository creates a new RankCacheRepository.
func NewRankCacheRepository(conn *Connection) *RankCacheRepository {
	return &RankCacheRepository{conn: conn}
}

const rankCacheColumns = `
	contest_id, team_id,
	points_public, totaltime_public, points_restricted, totaltime_restricted`

// Upsert replaces a rank cache row by its (contest, team) key.
func (r *RankCacheRepository) Upsert(ctx context.Context, row *scoring.RankRow) error {
	query := `
		INSERT INTO rankcache (` + rankCacheColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (contest_id, team_id) DO UPDATE SET
			points_public = EXCLUDED.points_public,
			totaltime_public = EXCLUDED.totaltime_public,
			points_restricted = EXCLUDED.points_restricted,
			totaltime_restricted = EXCLUDED.totaltime_restricted
	`

	_, err := r.conn.Exec(ctx, query,
		row.ContestID.Int64(), row.TeamID.Int64(),
		row.Public.Points, row.Public.TotalTime,
		row.Restricted.Points, row.Restricted.TotalTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rank cache row %s: %w", row, err)
	}

	return nil
}

// Get returns a rank cache row by its key.
func (r *RankCacheRepository) Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (*scoring.RankRow, error) {
	query := `SELECT` + rankCacheColumns + `
		FROM rankcache
		WHERE contest_id = $1 AND team_id = $2
	`

	var rr scoring.RankRow
	err := r.conn.QueryRow(ctx, query, contestID.Int64(), teamID.Int64()).Scan(
		&rr.ContestID, &rr.TeamID,
		&rr.Public.Points, &rr.Public.TotalTime,
		&rr.Restricted.Points, &rr.Restricted.TotalTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrRankRowNotFound
		}
		return nil, fmt.Errorf("failed to get rank cache row: %w", err)
	}

	return &rr, nil
}

// ListForContest returns all rank cache rows of a contest.
func (r *RankCacheRepository) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*scoring.RankRow, error) {
	query := `SELECT` + rankCacheColumns + `
		FROM rankcache
		WHERE contest_id = $1
		ORDER BY team_id
	`

	rows, err := r.conn.Query(ctx, query, contestID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list rank cache rows for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var result []*scoring.RankRow
	for rows.Next() {
		var rr scoring.RankRow
		err := rows.Scan(
			&rr.ContestID, &rr.TeamID,
			&rr.Public.Points, &rr.Public.TotalTime,
			&rr.Restricted.Points, &rr.Restricted.TotalTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank cache row: %w", err)
		}
		result = append(result, &rr)
	}

	return result, rows.Err()
}

// CountBetter counts enabled teams of the same sort-order class with a
// strictly better score in the given variant.
func (r *RankCacheRepository) CountBetter(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant scoring.Variant, score scoring.RankScore) (int, error) {
	pointsCol, timeCol := rankVariantColumns(variant)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM rankcache r
		JOIN teams t ON t.id = r.team_id
		JOIN team_categories c ON c.id = t.category_id
		WHERE r.contest_id = $1 AND t.enabled AND c.sort_order = $2
		  AND (r.%[1]s > $3 OR (r.%[1]s = $3 AND r.%[2]s < $4))
	`, pointsCol, timeCol)

	var count int
	err := r.conn.QueryRow(ctx, query,
		contestID.Int64(), sortOrder.Int(), score.Points, score.TotalTime).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count better-ranked teams: %w", err)
	}

	return count, nil
}

// ListTied returns enabled teams of the same sort-order class with exactly
// the given score in the given variant.
func (r *RankCacheRepository) ListTied(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant scoring.Variant, score scoring.RankScore) ([]shared.TeamID, error) {
	pointsCol, timeCol := rankVariantColumns(variant)

	query := fmt.Sprintf(`
		SELECT r.team_id
		FROM rankcache r
		JOIN teams t ON t.id = r.team_id
		JOIN team_categories c ON c.id = t.category_id
		WHERE r.contest_id = $1 AND t.enabled AND c.sort_order = $2
		  AND r.%s = $3 AND r.%s = $4
		ORDER BY r.team_id
	`, pointsCol, timeCol)

	rows, err := r.conn.Query(ctx, query,
		contestID.Int64(), sortOrder.Int(), score.Points, score.TotalTime)
	if err != nil {
		return nil, fmt.Errorf("failed to list tied teams: %w", err)
	}
	defer rows.Close()

	var teams []shared.TeamID
	for rows.Next() {
		var id shared.TeamID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tied team row: %w", err)
		}
		teams = append(teams, id)
	}

	return teams, rows.Err()
}

// Truncate removes all rank cache rows of a contest.
func (r *RankCacheRepository) Truncate(ctx context.Context, contestID shared.ContestID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM rankcache WHERE contest_id = $1`, contestID.Int64())
	if err != nil {
		return fmt.Errorf("failed to truncate rank cache for contest %d: %w", contestID, err)
	}
	return nil
}

func rankVariantColumns(v scoring.Variant) (points, totalTime string) {
	if v == scoring.VariantRestricted {
		return "points_restricted", "totaltime_restricted"
	}
	return "points_public", "totaltime_public"
}
