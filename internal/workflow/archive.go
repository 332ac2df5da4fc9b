package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Destination directs where an approved archive candidate ends up.
type Destination string

const (
	DestinationArchive Destination = "archive"
	DestinationKeep    Destination = "keep"
)

// ArchiveCandidate is one completed task the archive-completed workflow
// proposes to move into the archive document.
type ArchiveCandidate struct {
	ID            string      `json:"id"`
	TaskText      string      `json:"task_text"`
	CompletedDate string      `json:"completed_date"`
	Evidence      string      `json:"evidence"`
	Action        Action      `json:"action"`
	Destination   Destination `json:"destination"`
}

// ArchiveResult is the typed outcome of parsing an archive-completed
// response.
type ArchiveResult struct {
	Success    bool
	Candidates []ArchiveCandidate
}

type archivePayload struct {
	Completed []struct {
		TaskText      string `json:"taskText"`
		CompletedDate string `json:"completedDate"`
		Evidence      string `json:"evidence"`
	} `json:"completed"`
}

// ParseArchiveResponse parses an archive-completed response. The default
// action for every candidate is archive. Malformed input yields
// Success=false with no candidates.
func ParseArchiveResponse(raw string) *ArchiveResult {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return &ArchiveResult{Success: false}
	}

	var p archivePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return &ArchiveResult{Success: false}
	}

	result := &ArchiveResult{Success: true}
	for _, c := range p.Completed {
		if c.TaskText == "" {
			continue
		}
		result.Candidates = append(result.Candidates, ArchiveCandidate{
			ID:            uuid.NewString(),
			TaskText:      c.TaskText,
			CompletedDate: c.CompletedDate,
			Evidence:      c.Evidence,
			Action:        ActionArchive,
			Destination:   DestinationArchive,
		})
	}
	return result
}

// ArchiveSummary is the tolerant summary-only extraction for
// archive-completed responses.
func ArchiveSummary(raw string) *Summary {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var loose struct {
		Completed []json.RawMessage `json:"completed"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil
	}
	if loose.Completed == nil {
		return nil
	}

	s := &Summary{Kind: "archive-completed", Total: len(loose.Completed)}
	s.OneLine = fmt.Sprintf("%d completed tasks ready to archive", s.Total)
	return s
}
