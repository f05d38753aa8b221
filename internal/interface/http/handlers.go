// Package http implements the REST API for the scoring engine.
package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/codearena/scoring-engine/config"
	"github.com/codearena/scoring-engine/internal/application/command"
	"github.com/codearena/scoring-engine/internal/application/query"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Scoring Engine API",
		"version":     "v1",
		"description": "REST API for contest scoreboard computation and ranking",
		"endpoints": map[string]string{
			"health":        "/health",
			"scoreboard":    "/api/v1/contests/{cid}/scoreboard",
			"team_rank":     "/api/v1/contests/{cid}/teams/{tid}/rank",
			"filter_values": "/api/v1/contests/{cid}/scoreboard/filters",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCOREBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetScoreboard handles GET /api/v1/contests/{cid}/scoreboard
//
// Query parameters:
//   - affiliation: comma-separated affiliation IDs
//   - country:     comma-separated country codes
//   - category:    comma-separated category IDs
//   - team:        comma-separated team IDs
//   - public:      jury only, request the public variant instead
func (s *Server) handleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetScoreboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Scoreboard handler not configured")
		return
	}

	contestID, ok := s.contestIDParam(w, r)
	if !ok {
		return
	}

	filter, err := parseScoreboardFilter(r)
	if err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_filter", "Invalid filter parameters", err.Error())
		return
	}

	jury := s.isJury(r)
	q := query.GetScoreboardQuery{
		ContestID:   contestID,
		Jury:        jury,
		VisibleOnly: jury && getQueryParamBool(r, "public"),
		Filter:      filter,
	}

	result, err := s.deps.GetScoreboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get scoreboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetTeamScoreboard handles GET /api/v1/contests/{cid}/teams/{tid}/scoreboard
func (s *Server) handleGetTeamScoreboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetTeamScoreboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Team scoreboard handler not configured")
		return
	}

	contestID, ok := s.contestIDParam(w, r)
	if !ok {
		return
	}
	teamID, ok := s.teamIDParam(w, r)
	if !ok {
		return
	}

	q := query.GetTeamScoreboardQuery{
		ContestID: contestID,
		TeamID:    teamID,
		Jury:      s.isJury(r),
	}

	result, err := s.deps.GetTeamScoreboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get team scoreboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetTeamRank handles GET /api/v1/contests/{cid}/teams/{tid}/rank
func (s *Server) handleGetTeamRank(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetTeamRankHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Team rank handler not configured")
		return
	}

	contestID, ok := s.contestIDParam(w, r)
	if !ok {
		return
	}
	teamID, ok := s.teamIDParam(w, r)
	if !ok {
		return
	}

	q := query.GetTeamRankQuery{
		ContestID: contestID,
		TeamID:    teamID,
		Jury:      s.isJury(r),
	}

	result, err := s.deps.GetTeamRankHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get team rank")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetFilterValues handles GET /api/v1/contests/{cid}/scoreboard/filters
func (s *Server) handleGetFilterValues(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetFilterValuesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Filter values handler not configured")
		return
	}

	contestID, ok := s.contestIDParam(w, r)
	if !ok {
		return
	}

	jury := s.isJury(r)
	if s.deps.Features != nil {
		fctx := &config.FeatureContext{ContestID: int64(contestID), IsJury: jury}
		if !s.deps.Features.IsEnabled(config.FeatureScoreboardFilterValues, fctx) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not available")
			return
		}
	}

	q := query.GetFilterValuesQuery{
		ContestID: contestID,
		Jury:      jury,
	}

	result, err := s.deps.GetFilterValuesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get filter values")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// JURY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRebuildCaches handles POST /api/v1/contests/{cid}/rebuild
func (s *Server) handleRebuildCaches(w http.ResponseWriter, r *http.Request) {
	if s.deps.RebuildScoreCacheHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rebuild handler not configured")
		return
	}

	contestID, ok := s.contestIDParam(w, r)
	if !ok {
		return
	}

	cmd := command.RebuildScoreCacheCommand{
		ContestID:     contestID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RebuildScoreCacheHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to rebuild caches")
		return
	}

	s.logger.Info("caches rebuilt via API",
		logger.ContestID(int64(contestID)),
		logger.String("run_id", result.RunID),
		logger.Int("rows_rebuilt", result.RowsRebuilt),
		logger.String("request_id", getRequestID(r.Context())),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":        result.RunID,
		"rows_rebuilt":  result.RowsRebuilt,
		"teams_rebuilt": result.TeamsRebuilt,
		"duration_ms":   result.Duration.Milliseconds(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleJudgingWebhook handles POST /webhook/judging
func (s *Server) handleJudgingWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingest == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Judging ingest not configured")
		return
	}

	// Read body
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		s.logger.Error("failed to read webhook body", logger.Err(err))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if err := s.deps.Ingest.HandleJudgingUpdate(r.Context(), body); err != nil {
		if shared.IsValidation(err) {
			s.logger.Warn("rejected judging update",
				logger.Err(err),
				logger.String("ip", getClientIP(r)),
			)
			writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_payload", "Invalid judging update", err.Error())
			return
		}
		s.logger.Error("failed to handle judging update", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to process judging update")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PARSING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// isJury reports whether the request carries a valid jury API key.
func (s *Server) isJury(r *http.Request) bool {
	if s.deps.JuryAuth == nil {
		return false
	}
	return s.deps.JuryAuth.IsJury(r)
}

// contestIDParam extracts and validates the {cid} path parameter.
func (s *Server) contestIDParam(w http.ResponseWriter, r *http.Request) (shared.ContestID, bool) {
	raw := r.PathValue("cid")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Contest ID must be a positive integer")
		return 0, false
	}
	return shared.ContestID(id), true
}

// teamIDParam extracts and validates the {tid} path parameter.
func (s *Server) teamIDParam(w http.ResponseWriter, r *http.Request) (shared.TeamID, bool) {
	raw := r.PathValue("tid")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Team ID must be a positive integer")
		return 0, false
	}
	return shared.TeamID(id), true
}

// parseScoreboardFilter builds a scoring filter from query parameters.
func parseScoreboardFilter(r *http.Request) (scoring.Filter, error) {
	affiliations, err := parseInt64List(r, "affiliation")
	if err != nil {
		return scoring.Filter{}, err
	}
	categories, err := parseInt64List(r, "category")
	if err != nil {
		return scoring.Filter{}, err
	}

	teamIDs, err := parseInt64List(r, "team")
	if err != nil {
		return scoring.Filter{}, err
	}
	var teams []shared.TeamID
	for _, id := range teamIDs {
		teams = append(teams, shared.TeamID(id))
	}

	var countries []shared.Country
	for _, code := range splitList(r.URL.Query().Get("country")) {
		c, err := shared.NewCountry(code)
		if err != nil {
			return scoring.Filter{}, err
		}
		countries = append(countries, c)
	}

	return scoring.NewFilter(affiliations, countries, categories, teams), nil
}

// parseInt64List parses a comma-separated list of positive integers.
func parseInt64List(r *http.Request, key string) ([]int64, error) {
	var out []int64
	for _, item := range splitList(r.URL.Query().Get(key)) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil || id <= 0 {
			return nil, &strconv.NumError{Func: "ParseInt", Num: item, Err: strconv.ErrSyntax}
		}
		out = append(out, id)
	}
	return out, nil
}

// splitList splits a comma-separated parameter, dropping empty items.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// writeDomainError maps domain errors to HTTP responses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "validation_error", msg, err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", msg)
	default:
		s.logger.Error(msg,
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}
