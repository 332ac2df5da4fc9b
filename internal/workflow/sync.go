package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"valet/internal/patch"
)

// CommitMatch is one proposed commit-to-task link surfaced by the
// sync-commits workflow.
type CommitMatch struct {
	ID               string     `json:"id"`
	CommitSha        string     `json:"commit_sha"`
	TaskText         string     `json:"task_text"`
	TaskSection      Section    `json:"task_section"`
	Confidence       Confidence `json:"confidence"`
	AlreadyCompleted bool       `json:"already_completed"`
	Action           Action     `json:"action"`
}

// UnmatchedCommit is a commit the AI could not link to any task.
type UnmatchedCommit struct {
	Sha        string `json:"sha"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// SyncResult is the typed outcome of parsing a sync-commits response.
type SyncResult struct {
	Success   bool
	Matches   []CommitMatch
	Unmatched []UnmatchedCommit
}

// syncPayload is the wire shape the AI is asked to produce.
type syncPayload struct {
	Matches []struct {
		CommitSha  string `json:"commitSha"`
		TaskText   string `json:"taskText"`
		TaskSection string `json:"taskSection"`
		Confidence string `json:"confidence"`
	} `json:"matches"`
	UnmatchedCommits []struct {
		Sha        string `json:"sha"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion"`
	} `json:"unmatchedCommits"`
}

// ParseSyncResponse turns a raw sync-commits response into typed candidates.
// uncheckedTasks is the locally observed unchecked-task list; a match whose
// task does not appear there is treated as already completed, and local
// observation always wins over the AI's claim. Malformed input yields
// Success=false with no candidates; this function never panics.
func ParseSyncResponse(raw string, uncheckedTasks []string) *SyncResult {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return &SyncResult{Success: false}
	}

	var p syncPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return &SyncResult{Success: false}
	}

	result := &SyncResult{Success: true}
	for _, m := range p.Matches {
		if m.TaskText == "" {
			continue
		}
		conf := NormalizeConfidence(m.Confidence)
		completed := !taskStillUnchecked(m.TaskText, uncheckedTasks)
		result.Matches = append(result.Matches, CommitMatch{
			ID:               uuid.NewString(),
			CommitSha:        m.CommitSha,
			TaskText:         m.TaskText,
			TaskSection:      NormalizeSection(m.TaskSection),
			Confidence:       conf,
			AlreadyCompleted: completed,
			Action:           DefaultSyncAction(conf, completed),
		})
	}
	for _, u := range p.UnmatchedCommits {
		result.Unmatched = append(result.Unmatched, UnmatchedCommit{
			Sha:        u.Sha,
			Message:    u.Message,
			Suggestion: u.Suggestion,
		})
	}
	return result
}

func taskStillUnchecked(taskText string, unchecked []string) bool {
	for _, t := range unchecked {
		if patch.MatchesTaskPrefix(t, taskText) {
			return true
		}
	}
	return false
}

// SyncSummary reads just enough of a response to describe it in one line.
// It tolerates shapes the full parser would reject, since it doubles as a
// "does this look like a sync response" probe. Returns nil when the
// response does not look like one at all.
func SyncSummary(raw string) *Summary {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var loose struct {
		Matches []struct {
			Confidence string `json:"confidence"`
		} `json:"matches"`
		UnmatchedCommits []json.RawMessage `json:"unmatchedCommits"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil
	}
	if loose.Matches == nil && loose.UnmatchedCommits == nil {
		return nil
	}

	s := &Summary{Kind: "sync-commits", Total: len(loose.Matches), Unmatched: len(loose.UnmatchedCommits)}
	for _, m := range loose.Matches {
		switch NormalizeConfidence(m.Confidence) {
		case ConfidenceHigh:
			s.HighCount++
		case ConfidenceMedium:
			s.MedCount++
		default:
			s.LowCount++
		}
	}
	s.OneLine = fmt.Sprintf("%d matches (%d high, %d medium, %d low), %d unmatched commits",
		s.Total, s.HighCount, s.MedCount, s.LowCount, s.Unmatched)
	return s
}
