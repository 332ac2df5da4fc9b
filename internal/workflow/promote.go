package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PromoteCandidate is one task the promote-next workflow proposes to move
// from the Next section into Now.
type PromoteCandidate struct {
	ID         string     `json:"id"`
	TaskText   string     `json:"task_text"`
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
	Action     Action     `json:"action"`
}

// PromoteResult is the typed outcome of parsing a promote-next response.
type PromoteResult struct {
	Success    bool
	Candidates []PromoteCandidate
}

type promotePayload struct {
	Promotions []struct {
		TaskText   string `json:"taskText"`
		Reason     string `json:"reason"`
		Confidence string `json:"confidence"`
	} `json:"promotions"`
}

// ParsePromoteResponse parses a promote-next response. High confidence
// defaults to promote; medium and low default to skip, since promotion
// reshuffles the user's active list.
func ParsePromoteResponse(raw string) *PromoteResult {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return &PromoteResult{Success: false}
	}

	var p promotePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return &PromoteResult{Success: false}
	}

	result := &PromoteResult{Success: true}
	for _, pr := range p.Promotions {
		if pr.TaskText == "" {
			continue
		}
		conf := NormalizeConfidence(pr.Confidence)
		action := ActionSkip
		if conf == ConfidenceHigh {
			action = ActionPromote
		}
		result.Candidates = append(result.Candidates, PromoteCandidate{
			ID:         uuid.NewString(),
			TaskText:   pr.TaskText,
			Reason:     pr.Reason,
			Confidence: conf,
			Action:     action,
		})
	}
	return result
}

// PromoteSummary is the tolerant summary-only extraction for promote-next
// responses.
func PromoteSummary(raw string) *Summary {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var loose struct {
		Promotions []json.RawMessage `json:"promotions"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil
	}
	if loose.Promotions == nil {
		return nil
	}

	s := &Summary{Kind: "promote-next", Total: len(loose.Promotions)}
	s.OneLine = fmt.Sprintf("%d promotion candidates", s.Total)
	return s
}
