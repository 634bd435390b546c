package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies the component that produced the event.
type ActorRef struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
}

// SystemActor tags events emitted by a service without an end-user principal.
func SystemActor(name string) *ActorRef {
	return &ActorRef{Kind: "system", Name: name}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
