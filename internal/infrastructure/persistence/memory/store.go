// Package memory contains an in-memory implementation of every repository
// used by the scoring engine. It backs unit tests and local development;
// the postgres package is the production counterpart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

const defaultLockTimeout = 3 * time.Second

type scoreKey struct {
	contestID shared.ContestID
	teamID    shared.TeamID
	problemID shared.ProblemID
}

type rankKey struct {
	contestID shared.ContestID
	teamID    shared.TeamID
}

// Store holds all scoring state in memory behind one RWMutex.
type Store struct {
	mu sync.RWMutex

	contests     map[shared.ContestID]*contest.Contest
	categories   map[int64]*team.Category
	affiliations map[int64]*team.Affiliation
	teams        map[shared.TeamID]*team.Team
	problems     map[shared.ContestID][]*problem.ContestProblem
	submissions  []*submission.Submission
	scoreRows    map[scoreKey]*scoring.ScoreRow
	rankRows     map[rankKey]*scoring.RankRow
	options      map[shared.ContestID]scoring.Options

	lockTimeout time.Duration
	locks       sync.Map // string -> chan struct{} with capacity 1
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		contests:     make(map[shared.ContestID]*contest.Contest),
		categories:   make(map[int64]*team.Category),
		affiliations: make(map[int64]*team.Affiliation),
		teams:        make(map[shared.TeamID]*team.Team),
		problems:     make(map[shared.ContestID][]*problem.ContestProblem),
		scoreRows:    make(map[scoreKey]*scoring.ScoreRow),
		rankRows:     make(map[rankKey]*scoring.RankRow),
		options:      make(map[shared.ContestID]scoring.Options),
		lockTimeout:  defaultLockTimeout,
	}
}

// SetLockTimeout overrides the bounded lock wait. Tests use short waits.
func (s *Store) SetLockTimeout(d time.Duration) {
	s.lockTimeout = d
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

// PutContest stores a contest.
func (s *Store) PutContest(c *contest.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[c.ID] = c
}

// PutCategory stores a category.
func (s *Store) PutCategory(c *team.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// PutAffiliation stores an affiliation.
func (s *Store) PutAffiliation(a *team.Affiliation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.affiliations[a.ID] = a
}

// PutTeam stores a team. The team's Category and Affiliation pointers are
// resolved from previously stored fixtures when unset.
func (s *Store) PutTeam(t *team.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Category == nil {
		t.Category = s.categories[t.CategoryID]
	}
	if t.Affiliation == nil && t.AffiliationID != 0 {
		t.Affiliation = s.affiliations[t.AffiliationID]
	}
	s.teams[t.ID] = t
}

// PutProblem stores a contest problem.
func (s *Store) PutProblem(p *problem.ContestProblem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ContestID] = append(s.problems[p.ContestID], p)
}

// PutSubmission stores a submission.
func (s *Store) PutSubmission(sub *submission.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
}

// SetOptions stores scoring options for a contest.
func (s *Store) SetOptions(contestID shared.ContestID, opts scoring.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[contestID] = opts
}

// ─────────────────────────────────────────────────────────────────────────────
// contest.Repository
// ─────────────────────────────────────────────────────────────────────────────

// GetByID implements contest.Repository.
func (s *Store) GetByID(ctx context.Context, id shared.ContestID) (*contest.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[id]
	if !ok {
		return nil, shared.ErrContestNotFound
	}
	return c, nil
}

// ListActive implements contest.Repository.
func (s *Store) ListActive(ctx context.Context) ([]*contest.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []*contest.Contest
	for _, c := range s.contests {
		if c.Enabled && c.FreezeData(now).Active() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// team.Repository
// ─────────────────────────────────────────────────────────────────────────────

// teamByID looks a team up under a held read lock.
func (s *Store) teamByID(id shared.TeamID) (*team.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return nil, shared.ErrTeamNotFound
	}
	return t, nil
}

// Teams returns a team.Repository view of the store.
func (s *Store) Teams() team.Repository { return (*teamView)(s) }

// Contests returns a contest.Repository view of the store.
func (s *Store) Contests() contest.Repository { return s }

type teamView Store

func (v *teamView) GetByID(ctx context.Context, id shared.TeamID) (*team.Team, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamByID(id)
}

func (v *teamView) ListForScoreboard(ctx context.Context, contestID shared.ContestID, opts team.ListOptions) ([]*team.Team, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*team.Team
	for _, t := range s.teams {
		if !t.Enabled {
			continue
		}
		if !opts.Jury && !t.Visible() {
			continue
		}
		if t.Category == nil {
			return nil, shared.ErrMissingSortOrder
		}
		if !matchFilter(t, opts) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *teamView) ListCategories(ctx context.Context, jury bool) ([]*team.Category, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*team.Category
	for _, c := range s.categories {
		if !jury && !c.Visible {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (v *teamView) ListAffiliations(ctx context.Context, contestID shared.ContestID, jury bool) ([]*team.Affiliation, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]bool)
	var out []*team.Affiliation
	for _, t := range s.teams {
		if t.Affiliation == nil || seen[t.Affiliation.ID] {
			continue
		}
		if !jury && !t.Visible() {
			continue
		}
		seen[t.Affiliation.ID] = true
		out = append(out, t.Affiliation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchFilter(t *team.Team, opts team.ListOptions) bool {
	if len(opts.TeamIDs) > 0 && !containsTeam(opts.TeamIDs, t.ID) {
		return false
	}
	if len(opts.CategoryIDs) > 0 && !containsInt64(opts.CategoryIDs, t.CategoryID) {
		return false
	}
	if len(opts.AffiliationIDs) > 0 && !containsInt64(opts.AffiliationIDs, t.AffiliationID) {
		return false
	}
	if len(opts.Countries) > 0 && !containsCountry(opts.Countries, t.Country()) {
		return false
	}
	return true
}

func containsTeam(ids []shared.TeamID, id shared.TeamID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsInt64(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsCountry(cs []shared.Country, c shared.Country) bool {
	for _, v := range cs {
		if v == c {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// problem.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Problems returns a problem.Repository view of the store.
func (s *Store) Problems() problem.Repository { return (*problemView)(s) }

type problemView Store

func (v *problemView) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*problem.ContestProblem, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*problem.ContestProblem
	for _, p := range s.problems[contestID] {
		if p.AllowSubmit {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func (v *problemView) GetByID(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID) (*problem.ContestProblem, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.problems[contestID] {
		if p.ProblemID == problemID {
			return p, nil
		}
	}
	return nil, shared.ErrProblemNotFound
}

// ─────────────────────────────────────────────────────────────────────────────
// submission.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Submissions returns a submission.Repository view of the store.
func (s *Store) Submissions() submission.Repository { return (*submissionView)(s) }

type submissionView Store

func (v *submissionView) ListForScoring(ctx context.Context, q submission.ScoringQuery) ([]*submission.Submission, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	cnt, ok := s.contests[q.ContestID]
	if !ok {
		return nil, shared.ErrContestNotFound
	}

	var out []*submission.Submission
	for _, sub := range s.submissions {
		if sub.ContestID != q.ContestID || sub.TeamID != q.TeamID || sub.ProblemID != q.ProblemID {
			continue
		}
		if !sub.Valid {
			continue
		}
		if !sub.SubmitTime.Before(cnt.EndTime) {
			continue
		}
		if q.ExcludeCompilerError && sub.Judging != nil && sub.Judging.Verdict == submission.VerdictCompilerError {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContestTime < out[j].ContestTime })
	return out, nil
}

func (v *submissionView) CountEarlierPending(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID, sortOrder shared.SortOrder, before shared.ContestSeconds) (int, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.submissions {
		if sub.ContestID != contestID || sub.ProblemID != problemID || !sub.Valid {
			continue
		}
		if !sub.ContestTime.Before(before) {
			continue
		}
		t, ok := s.teams[sub.TeamID]
		if !ok || t.Category == nil || t.Category.SortOrder != sortOrder {
			continue
		}
		j := sub.Judging
		if j == nil || j.Verdict.IsEmpty() || j.Verdict.IsCorrect() {
			count++
		}
	}
	return count, nil
}

func (v *submissionView) ListScoringKeys(ctx context.Context, contestID shared.ContestID) ([]submission.ScoringKey, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[submission.ScoringKey]bool)
	var out []submission.ScoringKey
	for _, sub := range s.submissions {
		if sub.ContestID != contestID || !sub.Valid {
			continue
		}
		key := submission.ScoringKey{TeamID: sub.TeamID, ProblemID: sub.ProblemID}
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].ProblemID < out[j].ProblemID
	})
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scoring.ScoreRepository
// ─────────────────────────────────────────────────────────────────────────────

// ScoreRows returns a scoring.ScoreRepository view of the store.
func (s *Store) ScoreRows() scoring.ScoreRepository { return (*scoreView)(s) }

type scoreView Store

func (v *scoreView) Upsert(ctx context.Context, row *scoring.ScoreRow) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	s.scoreRows[scoreKey{row.ContestID, row.TeamID, row.ProblemID}] = &cp
	return nil
}

func (v *scoreView) Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (*scoring.ScoreRow, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.scoreRows[scoreKey{contestID, teamID, problemID}]
	if !ok {
		return nil, shared.ErrScoreRowNotFound
	}
	cp := *row
	return &cp, nil
}

func (v *scoreView) ListForTeam(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) ([]*scoring.ScoreRow, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoring.ScoreRow
	for key, row := range s.scoreRows {
		if key.contestID == contestID && key.teamID == teamID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProblemID < out[j].ProblemID })
	return out, nil
}

func (v *scoreView) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*scoring.ScoreRow, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoring.ScoreRow
	for key, row := range s.scoreRows {
		if key.contestID == contestID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].ProblemID < out[j].ProblemID
	})
	return out, nil
}

func (v *scoreView) SolveTimesForTeams(ctx context.Context, contestID shared.ContestID, teamIDs []shared.TeamID, variant scoring.Variant) (map[shared.TeamID][]shared.ContestSeconds, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[shared.TeamID]bool, len(teamIDs))
	for _, id := range teamIDs {
		want[id] = true
	}

	out := make(map[shared.TeamID][]shared.ContestSeconds)
	for key, row := range s.scoreRows {
		if key.contestID != contestID || !want[key.teamID] {
			continue
		}
		cell := row.Cell(variant)
		if cell.Correct {
			out[key.teamID] = append(out[key.teamID], cell.SolveTime)
		}
	}
	return out, nil
}

func (v *scoreView) Truncate(ctx context.Context, contestID shared.ContestID) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.scoreRows {
		if key.contestID == contestID {
			delete(s.scoreRows, key)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scoring.RankRepository
// ─────────────────────────────────────────────────────────────────────────────

// RankRows returns a scoring.RankRepository view of the store.
func (s *Store) RankRows() scoring.RankRepository { return (*rankView)(s) }

type rankView Store

func (v *rankView) Upsert(ctx context.Context, row *scoring.RankRow) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	s.rankRows[rankKey{row.ContestID, row.TeamID}] = &cp
	return nil
}

func (v *rankView) Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (*scoring.RankRow, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rankRows[rankKey{contestID, teamID}]
	if !ok {
		return nil, shared.ErrRankRowNotFound
	}
	cp := *row
	return &cp, nil
}

func (v *rankView) ListForContest(ctx context.Context, contestID shared.ContestID) ([]*scoring.RankRow, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*scoring.RankRow
	for key, row := range s.rankRows {
		if key.contestID == contestID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (v *rankView) CountBetter(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant scoring.Variant, score scoring.RankScore) (int, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key, row := range s.rankRows {
		if key.contestID != contestID {
			continue
		}
		if !v.sameClass(key.teamID, sortOrder) {
			continue
		}
		if row.Score(variant).BetterThan(score) {
			count++
		}
	}
	return count, nil
}

func (v *rankView) ListTied(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant scoring.Variant, score scoring.RankScore) ([]shared.TeamID, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []shared.TeamID
	for key, row := range s.rankRows {
		if key.contestID != contestID {
			continue
		}
		if !v.sameClass(key.teamID, sortOrder) {
			continue
		}
		if row.Score(variant).Equal(score) {
			out = append(out, key.teamID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// sameClass checks class membership under a held read lock.
func (v *rankView) sameClass(teamID shared.TeamID, sortOrder shared.SortOrder) bool {
	s := (*Store)(v)
	t, ok := s.teams[teamID]
	if !ok || !t.Enabled || t.Category == nil {
		return false
	}
	return t.Category.SortOrder == sortOrder
}

func (v *rankView) Truncate(ctx context.Context, contestID shared.ContestID) error {
	s := (*Store)(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.rankRows {
		if key.contestID == contestID {
			delete(s.rankRows, key)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scoring.RowLocker
// ─────────────────────────────────────────────────────────────────────────────

// Locker returns a scoring.RowLocker view of the store.
func (s *Store) Locker() scoring.RowLocker { return (*lockerView)(s) }

type lockerView Store

func (v *lockerView) LockScoreRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (scoring.Unlocker, error) {
	key := "score:" + contestID.String() + ":" + teamID.String() + ":" + problemID.String()
	return (*Store)(v).acquire(ctx, key, shared.ErrScoreRowLockTimeout)
}

func (v *lockerView) LockRankRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (scoring.Unlocker, error) {
	key := "rank:" + contestID.String() + ":" + teamID.String()
	return (*Store)(v).acquire(ctx, key, shared.ErrRankRowLockTimeout)
}

func (s *Store) acquire(ctx context.Context, key string, timeoutErr error) (scoring.Unlocker, error) {
	chI, _ := s.locks.LoadOrStore(key, make(chan struct{}, 1))
	ch := chI.(chan struct{})

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return &memUnlocker{ch: ch}, nil
	case <-timer.C:
		return nil, timeoutErr
	case <-ctx.Done():
		return nil, shared.WrapError("scoring", "AcquireLock", shared.ErrLockContention, "lock wait cancelled", ctx.Err())
	}
}

type memUnlocker struct {
	ch       chan struct{}
	released bool
}

// Unlock implements scoring.Unlocker. Double release is a bug and surfaces
// as a lock-release failure.
func (u *memUnlocker) Unlock(ctx context.Context) error {
	if u.released {
		return shared.ErrLockRelease
	}
	u.released = true
	<-u.ch
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scoring.OptionsProvider
// ─────────────────────────────────────────────────────────────────────────────

// Options returns a scoring.OptionsProvider view of the store.
func (s *Store) Options() scoring.OptionsProvider { return (*optionsView)(s) }

type optionsView Store

func (v *optionsView) OptionsForContest(ctx context.Context, contestID shared.ContestID) (scoring.Options, error) {
	s := (*Store)(v)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if opts, ok := s.options[contestID]; ok {
		return opts, nil
	}
	return scoring.DefaultOptions(), nil
}
