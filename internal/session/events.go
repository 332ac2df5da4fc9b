package session

// EventKind tags one observable session transition.
type EventKind string

const (
	EventStepChanged        EventKind = "step_changed"
	EventMessageAdded       EventKind = "message_added"
	EventAIStreaming        EventKind = "ai_streaming"
	EventAIComplete         EventKind = "ai_complete"
	EventTopicsUpdated      EventKind = "topics_updated"
	EventNamesGenerated     EventKind = "names_generated"
	EventNameSelected       EventKind = "name_selected"
	EventExtractionComplete EventKind = "extraction_complete"
	EventScaffoldComplete   EventKind = "scaffold_complete"
	EventError              EventKind = "error"
)

// Event describes one observable transition. Only the fields relevant to the
// Kind are populated. Events are ephemeral: the bus holds no queue and
// performs no replay.
type Event struct {
	Kind      EventKind
	SessionID string

	// EventStepChanged
	PrevStep Step
	NextStep Step

	// EventMessageAdded
	Message *Message

	// EventAIStreaming
	Partial string

	// EventTopicsUpdated
	Topics []string

	// EventNamesGenerated / EventNameSelected
	Names []string
	Name  string

	// EventScaffoldComplete
	Path string

	// EventError
	Err string
}
