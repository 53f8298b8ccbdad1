package chat

import "time"

// EntryKind tells the renderer how to draw an entry
type EntryKind string

const (
	KindUser      EntryKind = "user"
	KindAssistant EntryKind = "assistant"
	KindStatus    EntryKind = "status"
	KindPending   EntryKind = "pending"
)

// StatusLevel distinguishes informational from error status turns
type StatusLevel string

const (
	StatusInfo  StatusLevel = "info"
	StatusError StatusLevel = "error"
)

// Entry is one finished line of the conversation view
type Entry struct {
	ID        string
	Kind      EntryKind
	Content   string
	Level     StatusLevel
	Timestamp time.Time
}

// StreamingTurn is an assistant reply still being received
type StreamingTurn struct {
	ID      string
	Content string
	Started time.Time
}

// Transcript is the ordered conversation plus at most one live turn.
// It is not safe for concurrent use; Controller guards it.
type Transcript struct {
	entries []Entry
	live    *StreamingTurn
}

func (t *Transcript) append(e Entry) {
	t.entries = append(t.entries, e)
}

// remove deletes the entry with id and reports whether it existed
func (t *Transcript) remove(id string) bool {
	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Transcript) startLive(id string, at time.Time) {
	t.live = &StreamingTurn{ID: id, Started: at}
}

func (t *Transcript) appendLive(delta string) {
	if t.live != nil {
		t.live.Content += delta
	}
}

// finalizeLive turns the live turn into an assistant entry
func (t *Transcript) finalizeLive(at time.Time) (Entry, bool) {
	if t.live == nil {
		return Entry{}, false
	}
	e := Entry{ID: t.live.ID, Kind: KindAssistant, Content: t.live.Content, Timestamp: at}
	t.entries = append(t.entries, e)
	t.live = nil
	return e, true
}

func (t *Transcript) dropLive() {
	t.live = nil
}

func (t *Transcript) prepend(es []Entry) {
	t.entries = append(append(make([]Entry, 0, len(es)+len(t.entries)), es...), t.entries...)
}

// Entries returns a copy of the finished entries
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Live returns a copy of the live turn, or nil
func (t *Transcript) Live() *StreamingTurn {
	if t.live == nil {
		return nil
	}
	l := *t.live
	return &l
}

// pendingCount is the number of pending markers present
func (t *Transcript) pendingCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Kind == KindPending {
			n++
		}
	}
	return n
}
