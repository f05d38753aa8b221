// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ContestID represents a unique contest identifier.
type ContestID int64

// IsValid checks if the contest ID is valid (positive number).
func (c ContestID) IsValid() bool {
	return c > 0
}

// Int64 returns the underlying int64 value.
func (c ContestID) Int64() int64 {
	return int64(c)
}

// String returns the string representation.
func (c ContestID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// NewContestID creates a new ContestID with validation.
func NewContestID(id int64) (ContestID, error) {
	if id <= 0 {
		return 0, ErrInvalidContestID
	}
	return ContestID(id), nil
}

// TeamID represents a unique team identifier.
type TeamID int64

// IsValid checks if the team ID is valid (positive number).
func (t TeamID) IsValid() bool {
	return t > 0
}

// Int64 returns the underlying int64 value.
func (t TeamID) Int64() int64 {
	return int64(t)
}

// String returns the string representation.
func (t TeamID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// NewTeamID creates a new TeamID with validation.
func NewTeamID(id int64) (TeamID, error) {
	if id <= 0 {
		return 0, ErrInvalidTeamID
	}
	return TeamID(id), nil
}

// ProblemID represents a unique problem identifier.
type ProblemID int64

// IsValid checks if the problem ID is valid (positive number).
func (p ProblemID) IsValid() bool {
	return p > 0
}

// Int64 returns the underlying int64 value.
func (p ProblemID) Int64() int64 {
	return int64(p)
}

// String returns the string representation.
func (p ProblemID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// SubmissionID represents a unique submission identifier.
type SubmissionID int64

// IsValid checks if the submission ID is valid.
func (s SubmissionID) IsValid() bool {
	return s > 0
}

// Int64 returns the underlying int64 value.
func (s SubmissionID) Int64() int64 {
	return int64(s)
}

// String returns the string representation.
func (s SubmissionID) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// ═══════════════════════════════════════════════════════════════════════════
// SortOrder Value Object
// ═══════════════════════════════════════════════════════════════════════════

// SortOrder is a ranking partition. Teams in different sort orders never
// compete against each other for ordinal rank (e.g. official vs unofficial
// participants on the same scoreboard).
type SortOrder int

// IsValid checks if the sort order is valid (non-negative).
func (s SortOrder) IsValid() bool {
	return s >= 0
}

// Int returns the underlying int value.
func (s SortOrder) Int() int {
	return int(s)
}

// NewSortOrder creates a new SortOrder with validation.
func NewSortOrder(value int) (SortOrder, error) {
	if value < 0 {
		return 0, NewDomainError("shared", "NewSortOrder", ErrNegativeValue, "sort order cannot be negative")
	}
	return SortOrder(value), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Country Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Country represents an ISO 3166-1 alpha-3 country code.
type Country string

var countryRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValid checks if the country code has the expected format.
func (c Country) IsValid() bool {
	return countryRegex.MatchString(string(c))
}

// String returns the string representation.
func (c Country) String() string {
	return string(c)
}

// IsEmpty checks if no country is set.
func (c Country) IsEmpty() bool {
	return c == ""
}

// NewCountry creates a new Country with validation. An empty input is
// allowed and means "no country set".
func NewCountry(code string) (Country, error) {
	c := Country(strings.ToUpper(strings.TrimSpace(code)))
	if c == "" {
		return "", nil
	}
	if !c.IsValid() {
		return "", NewDomainError("shared", "NewCountry", ErrInvalidFormat, "country must be an ISO 3166-1 alpha-3 code")
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ContestSeconds Value Object
// ═══════════════════════════════════════════════════════════════════════════

// ContestSeconds is a contest-relative timestamp: fractional seconds elapsed
// since contest start. Submission times and solve times are stored in this
// unit; display rounding and minute conversion happen at the edges.
type ContestSeconds float64

// Float64 returns the underlying float64 value.
func (c ContestSeconds) Float64() float64 {
	return float64(c)
}

// Duration converts the contest-relative time to a time.Duration.
func (c ContestSeconds) Duration() time.Duration {
	return time.Duration(float64(c) * float64(time.Second))
}

// Round4 rounds to four decimal places, the precision used when comparing
// submission times between teams.
func (c ContestSeconds) Round4() ContestSeconds {
	return ContestSeconds(float64(int64(float64(c)*10000+0.5)) / 10000)
}

// Before reports whether c is strictly earlier than other at comparison
// precision.
func (c ContestSeconds) Before(other ContestSeconds) bool {
	return c.Round4() < other.Round4()
}

// String formats the value with comparison precision.
func (c ContestSeconds) String() string {
	return fmt.Sprintf("%.4f", float64(c))
}
