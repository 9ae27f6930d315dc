package reveal

import "github.com/12008yz/chibox-reveal/internal/models"

type EventKind string

const (
	EventStarted   EventKind = "REVEAL_STARTED"
	EventStep      EventKind = "REVEAL_STEP"
	EventStopped   EventKind = "REVEAL_STOPPED"
	EventSparks    EventKind = "REVEAL_SPARKS"
	EventStrike    EventKind = "REVEAL_STRIKE"
	EventCompleted EventKind = "REVEAL_COMPLETED"

	// EventDegraded is emitted when the winning item was not found in the
	// loaded pool and the session landed instantly instead of animating.
	EventDegraded EventKind = "REVEAL_DEGRADED"
)

// Event is published synchronously from the session's timer chain. Handlers
// must not call back into the session.
type Event struct {
	Kind         EventKind        `json:"kind"`
	SessionID    string           `json:"session_id"`
	Phase        Phase            `json:"phase"`
	Cursor       int              `json:"cursor"`
	DisplayIndex int              `json:"display_index"`
	Item         *models.CaseItem `json:"item,omitempty"`
}
