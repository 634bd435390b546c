package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/idempotency"
)

const consumerName = "dashboard-projector"

var projectedEvents = map[enums.OutboxEventType]bool{
	enums.EventOrderPlaced:    true,
	enums.EventEscrowReleased: true,
	enums.EventFundsReversed:  true,
	enums.EventPayoutRecorded: true,
	enums.EventEscrowMatured:  true,
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

// Consumer reads the domain subscription and feeds the projector, once per event id.
type Consumer struct {
	projector    *Projector
	subscription receiver
	decoders     decoder
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

func NewConsumer(projector *Projector, subscription receiver, decoders decoder, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if projector == nil {
		return nil, fmt.Errorf("projector required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if decoders == nil {
		return nil, fmt.Errorf("decoder registry required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		projector:    projector,
		subscription: subscription,
		decoders:     decoders,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run receives messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack       bool
	nack      bool
	duplicate bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
		"consumer":   consumerName,
	})

	if !projectedEvents[eventType] {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	skipped, err := c.idempotency.Once(ctx, consumerName, eventID, func(ctx context.Context) error {
		return c.projector.Apply(ctx, payload)
	})
	if err != nil {
		c.logg.Error(logCtx, "dashboard projection failed", err)
		return processResult{nack: true}
	}
	if skipped {
		c.logg.Debug(logCtx, "event already projected")
		return processResult{ack: true, duplicate: true}
	}
	c.logg.Debug(logCtx, "event projected")
	return processResult{ack: true}
}
