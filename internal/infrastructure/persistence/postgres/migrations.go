// Package postgres implements the PostgreSQL persistence layer for the
// scoring engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE CONTESTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create contest metadata tables
-- Version: 001

-- Contests with their timing phases. Freeze, unfreeze and deactivate are
-- optional; visibility of the public scoreboard is derived from them.
CREATE TABLE IF NOT EXISTS contests (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    short_name VARCHAR(50) NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE NOT NULL,
    freeze_time TIMESTAMP WITH TIME ZONE,
    unfreeze_time TIMESTAMP WITH TIME ZONE,
    deactivate_time TIMESTAMP WITH TIME ZONE,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_contest_times CHECK (end_time > start_time),
    CONSTRAINT valid_freeze_time CHECK (
        freeze_time IS NULL OR (freeze_time >= start_time AND freeze_time <= end_time)
    ),
    CONSTRAINT valid_unfreeze_time CHECK (
        unfreeze_time IS NULL OR (freeze_time IS NOT NULL AND unfreeze_time >= freeze_time)
    )
);

CREATE INDEX IF NOT EXISTS idx_contests_enabled ON contests(enabled) WHERE enabled;

-- Per-contest scoring configuration. A contest without a row uses defaults.
CREATE TABLE IF NOT EXISTS contest_options (
    contest_id BIGINT PRIMARY KEY REFERENCES contests(id) ON DELETE CASCADE,
    penalty_time INTEGER NOT NULL DEFAULT 20,
    score_in_seconds BOOLEAN NOT NULL DEFAULT FALSE,
    compile_penalty BOOLEAN NOT NULL DEFAULT TRUE,
    verification_required BOOLEAN NOT NULL DEFAULT FALSE,
    show_pending BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_penalty_time CHECK (penalty_time >= 0)
);

-- Team categories define the sort-order ranking classes. Teams from
-- different classes never compete for an ordinal rank.
CREATE TABLE IF NOT EXISTS team_categories (
    id BIGINT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    color VARCHAR(30) NOT NULL DEFAULT '',
    visible BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_sort_order CHECK (sort_order >= 0)
);

CREATE INDEX IF NOT EXISTS idx_team_categories_sort_order ON team_categories(sort_order, name, id);

-- Affiliations (institutions) teams compete for.
CREATE TABLE IF NOT EXISTS team_affiliations (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    country VARCHAR(3) NOT NULL DEFAULT '',

    CONSTRAINT valid_country CHECK (country = '' OR country ~ '^[A-Z]{3}$')
);

CREATE TABLE IF NOT EXISTS teams (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    category_id BIGINT NOT NULL REFERENCES team_categories(id),
    affiliation_id BIGINT REFERENCES team_affiliations(id),
    penalty_offset BIGINT NOT NULL DEFAULT 0,
    enabled BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_teams_category ON teams(category_id);
CREATE INDEX IF NOT EXISTS idx_teams_affiliation ON teams(affiliation_id) WHERE affiliation_id IS NOT NULL;

-- Which teams take part in which contest.
CREATE TABLE IF NOT EXISTS contest_teams (
    contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,

    PRIMARY KEY (contest_id, team_id)
);

-- Problems attached to a contest. The same problem may carry different
-- point values in different contests.
CREATE TABLE IF NOT EXISTS contest_problems (
    contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    problem_id BIGINT NOT NULL,
    short_name VARCHAR(20) NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    points INTEGER NOT NULL DEFAULT 1,
    color VARCHAR(30) NOT NULL DEFAULT '',
    allow_submit BOOLEAN NOT NULL DEFAULT TRUE,

    PRIMARY KEY (contest_id, problem_id),
    UNIQUE (contest_id, short_name),
    CONSTRAINT valid_points CHECK (points >= 0)
);

-- Updated_at trigger for contests
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_contests_updated_at ON contests;
CREATE TRIGGER update_contests_updated_at
    BEFORE UPDATE ON contests
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_contests_updated_at ON contests;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS contest_problems;
DROP TABLE IF EXISTS contest_teams;
DROP TABLE IF EXISTS teams;
DROP TABLE IF EXISTS team_affiliations;
DROP TABLE IF EXISTS team_categories;
DROP TABLE IF EXISTS contest_options;
DROP TABLE IF EXISTS contests;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE SUBMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create submission and judging tables
-- Version: 002
-- Purpose: Read model of the judging pipeline; the scoring engine never
-- writes verdicts, it only derives cache rows from them.

CREATE TABLE IF NOT EXISTS submissions (
    id BIGINT PRIMARY KEY,
    contest_id BIGINT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
    team_id BIGINT NOT NULL REFERENCES teams(id),
    problem_id BIGINT NOT NULL,
    submit_time TIMESTAMP WITH TIME ZONE NOT NULL,
    contest_time DOUBLE PRECISION NOT NULL,
    valid BOOLEAN NOT NULL DEFAULT TRUE,
    after_freeze BOOLEAN NOT NULL DEFAULT FALSE,
    judgehost VARCHAR(100) NOT NULL DEFAULT '',

    FOREIGN KEY (contest_id, problem_id) REFERENCES contest_problems(contest_id, problem_id)
);

-- Covers the per-row recompute walk: one (contest, team, problem) key,
-- ascending by submission time.
CREATE INDEX IF NOT EXISTS idx_submissions_scoring
    ON submissions(contest_id, team_id, problem_id, contest_time) WHERE valid;

-- Covers the first-to-solve count: all valid submissions of a problem,
-- ordered by contest time.
CREATE INDEX IF NOT EXISTS idx_submissions_problem_time
    ON submissions(contest_id, problem_id, contest_time) WHERE valid;

CREATE TABLE IF NOT EXISTS judgings (
    id BIGINT PRIMARY KEY,
    submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    verdict VARCHAR(30) NOT NULL DEFAULT '',
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    valid BOOLEAN NOT NULL DEFAULT TRUE,
    end_time TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_verdict CHECK (verdict IN (
        '', 'correct', 'compiler-error', 'wrong-answer', 'timelimit',
        'run-error', 'no-output', 'memory-limit'
    ))
);

-- At most one valid judging per submission; rejudging invalidates the rest.
CREATE UNIQUE INDEX IF NOT EXISTS idx_judgings_valid
    ON judgings(submission_id) WHERE valid;
`

const migration002Down = `
DROP TABLE IF EXISTS judgings;
DROP TABLE IF EXISTS submissions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE SCORE CACHES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create score cache and rank cache tables
-- Version: 003
-- Purpose: Materialized per-cell and per-team aggregates, both variants
-- side by side. Rows are replaced whole; truncate and rebuild must
-- reproduce the exact same content.

CREATE TABLE IF NOT EXISTS scorecache (
    contest_id BIGINT NOT NULL,
    team_id BIGINT NOT NULL,
    problem_id BIGINT NOT NULL,
    attempts_public INTEGER NOT NULL DEFAULT 0,
    pending_public INTEGER NOT NULL DEFAULT 0,
    solvetime_public DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_correct_public BOOLEAN NOT NULL DEFAULT FALSE,
    attempts_restricted INTEGER NOT NULL DEFAULT 0,
    pending_restricted INTEGER NOT NULL DEFAULT 0,
    solvetime_restricted DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_correct_restricted BOOLEAN NOT NULL DEFAULT FALSE,
    is_first_to_solve BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (contest_id, team_id, problem_id)
);

CREATE INDEX IF NOT EXISTS idx_scorecache_team ON scorecache(contest_id, team_id);
CREATE INDEX IF NOT EXISTS idx_scorecache_solved_public
    ON scorecache(contest_id, team_id) WHERE is_correct_public;
CREATE INDEX IF NOT EXISTS idx_scorecache_solved_restricted
    ON scorecache(contest_id, team_id) WHERE is_correct_restricted;

CREATE TABLE IF NOT EXISTS rankcache (
    contest_id BIGINT NOT NULL,
    team_id BIGINT NOT NULL,
    points_public INTEGER NOT NULL DEFAULT 0,
    totaltime_public BIGINT NOT NULL DEFAULT 0,
    points_restricted INTEGER NOT NULL DEFAULT 0,
    totaltime_restricted BIGINT NOT NULL DEFAULT 0,

    PRIMARY KEY (contest_id, team_id)
);

-- Covers CountBetter per variant: points descending, total time ascending.
CREATE INDEX IF NOT EXISTS idx_rankcache_public
    ON rankcache(contest_id, points_public DESC, totaltime_public ASC);
CREATE INDEX IF NOT EXISTS idx_rankcache_restricted
    ON rankcache(contest_id, points_restricted DESC, totaltime_restricted ASC);
`

const migration003Down = `
DROP TABLE IF EXISTS rankcache;
DROP TABLE IF EXISTS scorecache;
`
