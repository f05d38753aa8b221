package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the scoring engine.
// Supports gradual rollout across contests and per-contest overrides, so a
// new scoreboard behavior can be trialed on a test contest before every
// live contest picks it up.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	contestOverrides map[int64]map[string]bool // contestID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Contests are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	ContestID int64
	IsJury    bool
}

// Predefined feature flag names.
const (
	// === Scoreboard Features ===
	FeatureScoreboardCache        = "scoreboard.cache"         // Serve assembled boards from Redis
	FeatureScoreboardFilterValues = "scoreboard.filter_values" // Expose the filter values endpoint
	FeatureScoreboardWarming      = "scoreboard.warming"       // Pre-assemble boards in the background

	// === Scoring Features ===
	FeatureScoringFirstToSolve = "scoring.first_to_solve" // Detect and flag first solves
	FeatureScoringAsyncEvents  = "scoring.async_events"   // Dispatch domain events on a worker pool

	// === API Features ===
	FeatureAPIRateLimit = "api.rate_limit" // Per-client rate limiting on public endpoints

	// === Experimental Features ===
	FeatureExperimentalPubSub = "experimental.pubsub" // Distributed event bus over Redis pub/sub
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		contestOverrides: make(map[int64]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureScoreboardCache] = &Feature{
		Name:           FeatureScoreboardCache,
		Description:    "Serve assembled scoreboards from Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureScoreboardFilterValues] = &Feature{
		Name:           FeatureScoreboardFilterValues,
		Description:    "Expose categories, affiliations and countries for filtering",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureScoreboardWarming] = &Feature{
		Name:           FeatureScoreboardWarming,
		Description:    "Pre-assemble scoreboards of active contests in the background",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureScoringFirstToSolve] = &Feature{
		Name:           FeatureScoringFirstToSolve,
		Description:    "Detect and flag the first correct solution per problem",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureScoringAsyncEvents] = &Feature{
		Name:           FeatureScoringAsyncEvents,
		Description:    "Dispatch domain events on a worker pool",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAPIRateLimit] = &Feature{
		Name:           FeatureAPIRateLimit,
		Description:    "Rate limit public scoreboard endpoints per client",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureExperimentalPubSub] = &Feature{
		Name:           FeatureExperimentalPubSub,
		Description:    "Distribute domain events over Redis pub/sub",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment applies environment variable overrides.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "scoreboard.cache" -> "FEATURE_SCOREBOARD_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	return ff.isEnabledLocked(featureName, ctx)
}

func (ff *FeatureFlags) isEnabledLocked(featureName string, ctx *FeatureContext) bool {
	// Check contest overrides first
	if ctx != nil && ctx.ContestID != 0 {
		if overrides, ok := ff.contestOverrides[ctx.ContestID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Jury-side requests get all features
	if ctx != nil && ctx.IsJury {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.ContestID != 0 {
		return isInRollout(ctx.ContestID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a contest is in the rollout percentage.
// Uses consistent hashing so contests stay in their bucket.
func isInRollout(contestID int64, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(strconv.FormatInt(contestID, 10)))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetContestOverride sets a feature override for a specific contest.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetContestOverride(contestID int64, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.contestOverrides[contestID]; !ok {
		ff.contestOverrides[contestID] = make(map[string]bool)
	}
	ff.contestOverrides[contestID][featureName] = enabled
}

// ClearContestOverrides removes all overrides for a contest.
func (ff *FeatureFlags) ClearContestOverrides(contestID int64) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.contestOverrides, contestID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
