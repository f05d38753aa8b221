package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEAM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TeamRepository implements team.Repository for PostgreSQL.
type TeamRepository struct {
	conn *Connection
}

// NewTeamRepository creates a new TeamRepository.
func NewTeamRepository(conn *Connection) *TeamRepository {
	return &TeamRepository{conn: conn}
}

const teamColumns = `
	t.id, t.name, t.category_id, t.penalty_offset, t.enabled,
	c.id, c.name, c.sort_order, c.color, c.visible,
	a.id, a.name, a.country`

const teamJoins = `
	FROM teams t
	JOIN team_categories c ON c.id = t.category_id
	LEFT JOIN team_affiliations a ON a.id = t.affiliation_id`

// GetByID returns a team with its category and affiliation loaded.
func (r *TeamRepository) GetByID(ctx context.Context, id shared.TeamID) (*team.Team, error) {
	query := `SELECT` + teamColumns + teamJoins + `
		WHERE t.id = $1
	`

	row := r.conn.QueryRow(ctx, query, id.Int64())
	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	return t, nil
}

// ListForScoreboard returns the enabled teams of a contest that pass the
// filter, each with its category and affiliation loaded.
func (r *TeamRepository) ListForScoreboard(ctx context.Context, contestID shared.ContestID, opts team.ListOptions) ([]*team.Team, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + teamColumns + teamJoins + `
	JOIN contest_teams ct ON ct.team_id = t.id
	WHERE ct.contest_id = $1 AND t.enabled`)

	args := []interface{}{contestID.Int64()}

	if !opts.Jury {
		sb.WriteString(" AND c.visible")
	}
	if len(opts.CategoryIDs) > 0 {
		args = append(args, opts.CategoryIDs)
		fmt.Fprintf(&sb, " AND t.category_id = ANY($%d)", len(args))
	}
	if len(opts.AffiliationIDs) > 0 {
		args = append(args, opts.AffiliationIDs)
		fmt.Fprintf(&sb, " AND t.affiliation_id = ANY($%d)", len(args))
	}
	if len(opts.Countries) > 0 {
		countries := make([]string, len(opts.Countries))
		for i, c := range opts.Countries {
			countries[i] = c.String()
		}
		args = append(args, countries)
		fmt.Fprintf(&sb, " AND a.country = ANY($%d)", len(args))
	}
	if len(opts.TeamIDs) > 0 {
		ids := make([]int64, len(opts.TeamIDs))
		for i, id := range opts.TeamIDs {
			ids[i] = id.Int64()
		}
		args = append(args, ids)
		fmt.Fprintf(&sb, " AND t.id = ANY($%d)", len(args))
	}

	sb.WriteString(" ORDER BY t.id")

	rows, err := r.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var teams []*team.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, t)
	}

	return teams, rows.Err()
}

// ListCategories returns categories ordered by sort order, name and ID.
func (r *TeamRepository) ListCategories(ctx context.Context, jury bool) ([]*team.Category, error) {
	query := `
		SELECT id, name, sort_order, color, visible
		FROM team_categories
		WHERE $1 OR visible
		ORDER BY sort_order, name, id
	`

	rows, err := r.conn.Query(ctx, query, jury)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*team.Category
	for rows.Next() {
		var c team.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.Color, &c.Visible); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// ListAffiliations returns the affiliations of the contest's enabled teams
// that are visible to the viewer.
func (r *TeamRepository) ListAffiliations(ctx context.Context, contestID shared.ContestID, jury bool) ([]*team.Affiliation, error) {
	query := `
		SELECT DISTINCT a.id, a.name, a.country
		FROM team_affiliations a
		JOIN teams t ON t.affiliation_id = a.id
		JOIN contest_teams ct ON ct.team_id = t.id AND ct.contest_id = $1
		JOIN team_categories c ON c.id = t.category_id
		WHERE t.enabled AND ($2 OR c.visible)
		ORDER BY a.name, a.id
	`

	rows, err := r.conn.Query(ctx, query, contestID.Int64(), jury)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliations for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var affiliations []*team.Affiliation
	for rows.Next() {
		var a team.Affiliation
		if err := rows.Scan(&a.ID, &a.Name, &a.Country); err != nil {
			return nil, fmt.Errorf("failed to scan affiliation row: %w", err)
		}
		affiliations = append(affiliations, &a)
	}

	return affiliations, rows.Err()
}

func scanTeam(row pgx.Row) (*team.Team, error) {
	var (
		t       team.Team
		cat     team.Category
		affID   *int64
		affName *string
		country *string
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.CategoryID, &t.PenaltyOffset, &t.Enabled,
		&cat.ID, &cat.Name, &cat.SortOrder, &cat.Color, &cat.Visible,
		&affID, &affName, &country,
	)
	if err != nil {
		return nil, err
	}

	t.Category = &cat
	if affID != nil {
		t.AffiliationID = *affID
		aff := team.Affiliation{ID: *affID}
		if affName != nil {
			aff.Name = *affName
		}
		if country != nil {
			aff.Country = shared.Country(*country)
		}
		t.Affiliation = &aff
	}

	return &t, nil
}
