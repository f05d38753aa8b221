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
// OPTIONS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// OptionsRepository implements scoring.OptionsProvider for PostgreSQL.
// A contest without a contest_options row uses the defaults.
type OptionsRepository struct {
	conn *Connection
}

// NewOptionsRepository creates a new OptionsRepository.
func NewOptionsRepository(conn *Connection) *OptionsRepository {
	return &OptionsRepository{conn: conn}
}

// OptionsForContest returns the scoring configuration snapshot of a contest.
func (r *OptionsRepository) OptionsForContest(ctx context.Context, contestID shared.ContestID) (scoring.Options, error) {
	query := `
		SELECT penalty_time, score_in_seconds, compile_penalty,
			   verification_required, show_pending
		FROM contest_options
		WHERE contest_id = $1
	`

	var opts scoring.Options
	err := r.conn.QueryRow(ctx, query, contestID.Int64()).Scan(
		&opts.PenaltyTime,
		&opts.ScoreInSeconds,
		&opts.CompilePenalty,
		&opts.VerificationRequired,
		&opts.ShowPending,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scoring.DefaultOptions(), nil
		}
		return scoring.Options{}, fmt.Errorf("failed to load options for contest %d: %w", contestID, err)
	}

	return opts, nil
}
