package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EnrichmentSuggestion is one proposed context addition for an existing
// task, surfaced by the enrich-tasks workflow.
type EnrichmentSuggestion struct {
	ID           string     `json:"id"`
	TaskText     string     `json:"task_text"`
	AddedContext string     `json:"added_context"`
	Confidence   Confidence `json:"confidence"`
	Action       Action     `json:"action"`
}

// EnrichResult is the typed outcome of parsing an enrich-tasks response.
type EnrichResult struct {
	Success     bool
	Suggestions []EnrichmentSuggestion
}

type enrichPayload struct {
	Suggestions []struct {
		TaskText     string `json:"taskText"`
		AddedContext string `json:"addedContext"`
		Confidence   string `json:"confidence"`
	} `json:"suggestions"`
}

// ParseEnrichResponse parses an enrich-tasks response. High and medium
// confidence suggestions default to apply; low defaults to skip.
func ParseEnrichResponse(raw string) *EnrichResult {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return &EnrichResult{Success: false}
	}

	var p enrichPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return &EnrichResult{Success: false}
	}

	result := &EnrichResult{Success: true}
	for _, sg := range p.Suggestions {
		if sg.TaskText == "" || sg.AddedContext == "" {
			continue
		}
		conf := NormalizeConfidence(sg.Confidence)
		action := ActionApply
		if conf == ConfidenceLow {
			action = ActionSkip
		}
		result.Suggestions = append(result.Suggestions, EnrichmentSuggestion{
			ID:           uuid.NewString(),
			TaskText:     sg.TaskText,
			AddedContext: sg.AddedContext,
			Confidence:   conf,
			Action:       action,
		})
	}
	return result
}

// EnrichSummary is the tolerant summary-only extraction for enrich-tasks
// responses.
func EnrichSummary(raw string) *Summary {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var loose struct {
		Suggestions []struct {
			Confidence string `json:"confidence"`
		} `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil
	}
	if loose.Suggestions == nil {
		return nil
	}

	s := &Summary{Kind: "enrich-tasks", Total: len(loose.Suggestions)}
	for _, sg := range loose.Suggestions {
		switch NormalizeConfidence(sg.Confidence) {
		case ConfidenceHigh:
			s.HighCount++
		case ConfidenceMedium:
			s.MedCount++
		default:
			s.LowCount++
		}
	}
	s.OneLine = fmt.Sprintf("%d enrichment suggestions (%d high confidence)", s.Total, s.HighCount)
	return s
}
