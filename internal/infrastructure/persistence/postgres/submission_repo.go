package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SubmissionRepository implements submission.Repository for PostgreSQL.
// Submissions and judgings belong to the external judging pipeline; this
// repository only reads them.
type SubmissionRepository struct {
	conn *Connection
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(conn *Connection) *SubmissionRepository {
	return &SubmissionRepository{conn: conn}
}

// ListForScoring returns the valid submissions of one (contest, team,
// problem) key, submitted before contest end, ascending by submission time.
// The active judging is joined in when one exists.
func (r *SubmissionRepository) ListForScoring(ctx context.Context, q submission.ScoringQuery) ([]*submission.Submission, error) {
	query := `
		SELECT s.id, s.contest_id, s.team_id, s.problem_id,
			   s.submit_time, s.contest_time, s.valid, s.after_freeze, s.judgehost,
			   j.id, j.verdict, j.verified, j.valid, j.end_time
		FROM submissions s
		JOIN contests cn ON cn.id = s.contest_id
		LEFT JOIN judgings j ON j.submission_id = s.id AND j.valid
		WHERE s.contest_id = $1 AND s.team_id = $2 AND s.problem_id = $3
		  AND s.valid
		  AND s.submit_time < cn.end_time
	`
	if q.ExcludeCompilerError {
		query += `  AND (j.id IS NULL OR j.verdict <> 'compiler-error')
	`
	}
	query += `	ORDER BY s.contest_time, s.id`

	rows, err := r.conn.Query(ctx, query,
		q.ContestID.Int64(), q.TeamID.Int64(), q.ProblemID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for scoring: %w", err)
	}
	defer rows.Close()

	var subs []*submission.Submission
	for rows.Next() {
		var (
			s        submission.Submission
			jID      *int64
			jVerdict *string
			jVerif   *bool
			jValid   *bool
			jEnd     *time.Time
		)

		err := rows.Scan(
			&s.ID, &s.ContestID, &s.TeamID, &s.ProblemID,
			&s.SubmitTime, &s.ContestTime, &s.Valid, &s.AfterFreeze, &s.Judgehost,
			&jID, &jVerdict, &jVerif, &jValid, &jEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}

		if jID != nil {
			s.Judging = &submission.Judging{
				ID:           *jID,
				SubmissionID: s.ID,
				Verdict:      submission.Verdict(*jVerdict),
				Verified:     *jVerif,
				Valid:        *jValid,
				EndTime:      jEnd,
			}
		}

		subs = append(subs, &s)
	}

	return subs, rows.Err()
}

// CountEarlierPending counts valid submissions of the same sort-order class
// on the same problem, submitted strictly earlier at 4-digit precision,
// that are still unjudged or judged correct. Zero means the team's accepted
// submission is the first solve of the problem in its class.
func (r *SubmissionRepository) CountEarlierPending(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID, sortOrder shared.SortOrder, before shared.ContestSeconds) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions s
		JOIN teams t ON t.id = s.team_id
		JOIN team_categories c ON c.id = t.category_id
		LEFT JOIN judgings j ON j.submission_id = s.id AND j.valid
		WHERE s.contest_id = $1 AND s.problem_id = $2
		  AND s.valid
		  AND c.sort_order = $3
		  AND round(s.contest_time::numeric, 4) < round($4::numeric, 4)
		  AND (j.id IS NULL OR j.verdict = '' OR j.verdict = 'correct')
	`

	var count int
	err := r.conn.QueryRow(ctx, query,
		contestID.Int64(), problemID.Int64(), sortOrder.Int(), before.Float64()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count earlier pending submissions: %w", err)
	}

	return count, nil
}

// ListScoringKeys returns all (team, problem) pairs of a contest that have
// valid submissions.
func (r *SubmissionRepository) ListScoringKeys(ctx context.Context, contestID shared.ContestID) ([]submission.ScoringKey, error) {
	query := `
		SELECT DISTINCT team_id, problem_id
		FROM submissions
		WHERE contest_id = $1 AND valid
		ORDER BY team_id, problem_id
	`

	rows, err := r.conn.Query(ctx, query, contestID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring keys for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var keys []submission.ScoringKey
	for rows.Next() {
		var k submission.ScoringKey
		if err := rows.Scan(&k.TeamID, &k.ProblemID); err != nil {
			return nil, fmt.Errorf("failed to scan scoring key row: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}
