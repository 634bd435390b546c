package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewDomainDecoders registers the v1 decoder of every marketplace event.
func NewDomainDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderPlaced, 1, decodeInto[payloads.OrderPlacedEvent])
	reg.Register(enums.EventOrderStatusChanged, 1, decodeInto[payloads.StatusChangedEvent])
	reg.Register(enums.EventShipmentStatusChanged, 1, decodeInto[payloads.StatusChangedEvent])
	reg.Register(enums.EventEscrowReleased, 1, decodeInto[payloads.EscrowReleasedEvent])
	reg.Register(enums.EventFundsReversed, 1, decodeInto[payloads.FundsReversedEvent])
	reg.Register(enums.EventEscrowMatured, 1, decodeInto[payloads.EscrowMaturedEvent])
	reg.Register(enums.EventPayoutRecorded, 1, decodeInto[payloads.PayoutRecordedEvent])
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}

func decodeInto[T any](payload json.RawMessage) (interface{}, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
