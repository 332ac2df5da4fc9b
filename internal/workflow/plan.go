package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SliceDestination directs where a proposed roadmap slice is inserted.
type SliceDestination string

const (
	SliceCurrent SliceDestination = "current"
	SliceLater   SliceDestination = "later"
)

// PlanSlice is one proposed roadmap slice from the plan-work workflow.
type PlanSlice struct {
	ID          string           `json:"id"`
	Heading     string           `json:"heading"`
	Tasks       []string         `json:"tasks"`
	Destination SliceDestination `json:"destination"`
	Action      Action           `json:"action"`
}

// PlanResult is the typed outcome of parsing a plan-work response.
type PlanResult struct {
	Success bool
	Slices  []PlanSlice
}

type planPayload struct {
	Slices []struct {
		Heading     string   `json:"heading"`
		Tasks       []string `json:"tasks"`
		Destination string   `json:"destination"`
	} `json:"slices"`
}

// ParsePlanResponse parses a plan-work response. The default destination
// comes from the AI's own suggestion, normalized to current/later (later
// when unrecognized); the default action is apply.
func ParsePlanResponse(raw string) *PlanResult {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return &PlanResult{Success: false}
	}

	var p planPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return &PlanResult{Success: false}
	}

	result := &PlanResult{Success: true}
	for _, sl := range p.Slices {
		if sl.Heading == "" || len(sl.Tasks) == 0 {
			continue
		}
		dest := SliceLater
		if sl.Destination == string(SliceCurrent) || NormalizeSection(sl.Destination) == SectionNow {
			dest = SliceCurrent
		}
		result.Slices = append(result.Slices, PlanSlice{
			ID:          uuid.NewString(),
			Heading:     sl.Heading,
			Tasks:       append([]string(nil), sl.Tasks...),
			Destination: dest,
			Action:      ActionApply,
		})
	}
	return result
}

// PlanSummary is the tolerant summary-only extraction for plan-work
// responses.
func PlanSummary(raw string) *Summary {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var loose struct {
		Slices []struct {
			Tasks []json.RawMessage `json:"tasks"`
		} `json:"slices"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil
	}
	if loose.Slices == nil {
		return nil
	}

	taskCount := 0
	for _, sl := range loose.Slices {
		taskCount += len(sl.Tasks)
	}
	s := &Summary{Kind: "plan-work", Total: len(loose.Slices)}
	s.OneLine = fmt.Sprintf("%d proposed slices covering %d tasks", s.Total, taskCount)
	return s
}
