package session

import "strings"

// TransitionPhrase is the fixed sentence whose presence in an AI response
// signals readiness to leave the Q&A phase. Matching is case-insensitive.
const TransitionPhrase = "very well, sir. let us proceed"

// ContainsTransitionPhrase reports whether text contains the transition
// phrase, ignoring case.
func ContainsTransitionPhrase(text string) bool {
	return strings.Contains(strings.ToLower(text), TransitionPhrase)
}

// Topic tags for the six fixed planning topics.
const (
	TopicCoreProblem     = "core_problem"
	TopicTargetUsers     = "target_users"
	TopicKeyFeatures     = "key_features"
	TopicConstraints     = "constraints"
	TopicSuccessCriteria = "success_criteria"
	TopicTimeline        = "timeline"
)

// topicOrder fixes the detection iteration order so results are
// deterministic.
var topicOrder = []string{
	TopicCoreProblem,
	TopicTargetUsers,
	TopicKeyFeatures,
	TopicConstraints,
	TopicSuccessCriteria,
	TopicTimeline,
}

// topicKeywords maps each topic to the keywords that mark it covered when
// any of them appears as a case-insensitive substring of an AI question.
var topicKeywords = map[string][]string{
	TopicCoreProblem: {
		"problem", "pain point", "frustration", "what are you trying to solve",
	},
	TopicTargetUsers: {
		"target user", "who is this for", "audience", "who will use", "customer",
	},
	TopicKeyFeatures: {
		"feature", "functionality", "capabilit", "core experience", "what should it do",
	},
	TopicConstraints: {
		"constraint", "limitation", "budget", "tech stack", "technolog", "restriction",
	},
	TopicSuccessCriteria: {
		"success", "metric", "measure", "outcome", "what does done look like",
	},
	TopicTimeline: {
		"timeline", "deadline", "milestone", "how soon", "when do you want",
	},
}

// DetectTopics returns the union of covered and any topics whose keywords
// appear in text. Coverage is monotonic: once covered, a topic never leaves
// the set. The returned slice preserves the order of covered, with newly
// detected topics appended in fixed topic order.
func DetectTopics(text string, covered []string) []string {
	lower := strings.ToLower(text)
	result := append([]string(nil), covered...)

	has := func(topic string) bool {
		for _, t := range result {
			if t == topic {
				return true
			}
		}
		return false
	}

	for _, topic := range topicOrder {
		if has(topic) {
			continue
		}
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(lower, kw) {
				result = append(result, topic)
				break
			}
		}
	}
	return result
}
