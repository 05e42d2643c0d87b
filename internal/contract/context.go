package contract

import (
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

// Identity is the verified membership identity of the transaction submitter,
// as established by the gateway that accepted the signed submission.
type Identity struct {
	// MSPID is the submitter's organization membership identifier
	MSPID string
	// ClientID is the submitter's individual client identifier
	ClientID string
}

// EventSink collects the named events emitted by a contract invocation.
// Events only leave the process once the surrounding runtime commits the
// transaction's write-set.
type EventSink interface {
	SetEvent(name domain.EventName, payload []byte)
}

// Context carries everything a single contract invocation is allowed to
// touch: the transaction's view of the world state, the caller's identity,
// and the event sink.
type Context struct {
	State    worldstate.WorldState
	Identity Identity
	Events   EventSink
}

// EventRecorder is a simple EventSink that keeps emitted events in order
type EventRecorder struct {
	events []RecordedEvent
}

// RecordedEvent is a single emitted event
type RecordedEvent struct {
	Name    domain.EventName
	Payload []byte
}

// NewEventRecorder creates an empty event recorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) SetEvent(name domain.EventName, payload []byte) {
	r.events = append(r.events, RecordedEvent{Name: name, Payload: payload})
}

// Events returns the recorded events in emission order
func (r *EventRecorder) Events() []RecordedEvent {
	return r.events
}
