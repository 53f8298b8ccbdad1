package chat

// EventKind identifies a controller notification
type EventKind int

const (
	// EventTranscript entries were added or removed
	EventTranscript EventKind = iota
	// EventStreamDelta text was appended to the live turn
	EventStreamDelta
	// EventCredits the credit counter changed
	EventCredits
	// EventState the send state changed
	EventState
	// EventSessionEnded the session was torn down
	EventSessionEnded
)

// Event is delivered synchronously to the observer; observers must not block
type Event struct {
	Kind    EventKind
	Delta   string
	Credits int
	State   State
}
