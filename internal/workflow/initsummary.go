package workflow

import (
	"encoding/json"
	"fmt"
)

// InitDocuments is the structured document set extracted by the
// init-from-summary workflow: the content of each plan file derived from a
// free-form project summary.
type InitDocuments struct {
	Vision   string   `json:"vision"`
	NowTasks []string `json:"nowTasks"`
	Next     []string `json:"nextTasks"`
	Later    []string `json:"laterTasks"`
	Slices   []struct {
		Heading string   `json:"heading"`
		Tasks   []string `json:"tasks"`
	} `json:"slices"`
}

// ParseInitSummary parses an init-from-summary response. Returns nil on
// malformed input - this parser is summary-only by nature and never guesses.
func ParseInitSummary(raw string) *InitDocuments {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil
	}

	var docs InitDocuments
	if err := json.Unmarshal([]byte(payload), &docs); err != nil {
		return nil
	}
	if docs.Vision == "" && len(docs.NowTasks) == 0 && len(docs.Next) == 0 {
		return nil
	}
	return &docs
}

// InitSummary is the tolerant one-line description of an init-from-summary
// response.
func InitSummary(raw string) *Summary {
	docs := ParseInitSummary(raw)
	if docs == nil {
		return nil
	}
	total := len(docs.NowTasks) + len(docs.Next) + len(docs.Later)
	s := &Summary{Kind: "init-from-summary", Total: total}
	s.OneLine = fmt.Sprintf("%d tasks across %d slices", total, len(docs.Slices))
	return s
}

// DescribeResponse probes a raw response against every workflow shape and
// returns the first summary that fits, or nil when none do.
func DescribeResponse(raw string) *Summary {
	probes := []func(string) *Summary{
		SyncSummary,
		ArchiveSummary,
		EnrichSummary,
		PlanSummary,
		PromoteSummary,
		InitSummary,
	}
	for _, probe := range probes {
		if s := probe(raw); s != nil {
			return s
		}
	}
	return nil
}
