// Package workflow turns free-form AI responses into typed, reviewable
// change candidates and executes the user-approved subset against the plan
// documents. One parser exists per workflow shape; parsing never panics and
// never guesses — malformed input yields an explicit empty/failed result.
package workflow

import "strings"

// Confidence buckets an AI match by how sure it claims to be.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps arbitrary AI confidence strings into a bucket,
// defaulting to low.
func NormalizeConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Action is the user-settable disposition of one change candidate.
type Action string

const (
	ActionMarkArchive  Action = "mark-archive"  // mark complete and archive
	ActionMarkComplete Action = "mark-complete" // mark complete only
	ActionArchive      Action = "archive"       // move to archive document
	ActionKeep         Action = "keep"          // leave in place
	ActionApply        Action = "apply"         // apply the suggested edit
	ActionPromote      Action = "promote"       // move next -> now
	ActionSkip         Action = "skip"          // do nothing
)

// Section is a canonical task-list section.
type Section string

const (
	SectionNow   Section = "now"
	SectionNext  Section = "next"
	SectionLater Section = "later"
)

// NormalizeSection maps a section name - canonical or legacy - onto one of
// the three canonical values. Legacy documents used "Next 1-3 Actions" for
// the immediate list, "Active Tasks" for the current backlog head, and
// "Future Tasks" for deferred work. The mapping is total: every input
// resolves to a canonical value, defaulting to next, and canonical inputs
// map to themselves.
func NormalizeSection(s string) Section {
	lower := strings.ToLower(strings.TrimSpace(s))

	switch Section(lower) {
	case SectionNow, SectionNext, SectionLater:
		return Section(lower)
	}

	for _, kw := range []string{"1-3", "1–3", "action", "active", "current", "immediate"} {
		if strings.Contains(lower, kw) {
			return SectionNow
		}
	}
	for _, kw := range []string{"later", "future", "backlog", "someday", "deferred"} {
		if strings.Contains(lower, kw) {
			return SectionLater
		}
	}
	return SectionNext
}

// DefaultSyncAction is the default disposition of a commit/task match. It is
// a pure function of the AI's confidence and the locally observed completion
// state, never of UI state, so headless invocation is reproducible. Local
// observation always wins: a match whose task is already checked off
// defaults to skip regardless of confidence.
func DefaultSyncAction(confidence Confidence, alreadyCompleted bool) Action {
	if alreadyCompleted {
		return ActionSkip
	}
	switch confidence {
	case ConfidenceHigh:
		return ActionMarkArchive
	case ConfidenceMedium:
		return ActionMarkComplete
	default:
		return ActionSkip
	}
}

// Summary is the lightweight, shape-tolerant extraction used to render a
// one-line description of a response without materializing candidates.
type Summary struct {
	Kind       string // which workflow shape this looks like
	Total      int
	HighCount  int
	MedCount   int
	LowCount   int
	Unmatched  int
	OneLine    string
}
