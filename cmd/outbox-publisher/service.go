package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arooba/marketplace-backend/pkg/config"
	"github.com/arooba/marketplace-backend/pkg/db/models"
	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
	"github.com/arooba/marketplace-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	DomainPublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// unroutableError means no publisher exists for the descriptor's topic.
type unroutableError struct {
	topic string
}

func (e unroutableError) Error() string {
	return fmt.Sprintf("publisher not configured for topic %q", e.topic)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service relays committed outbox rows to Pub/Sub. Messages that carry an order are published
// with the order ID as ordering key, so subscribers see an order's lifecycle in commit order.
// Rows that cannot be decoded, routed, or delivered within their attempts are copied to the
// DLQ and marked terminal in the same transaction.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	backoff          *pollBackoff
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = orderedPublisherFactory(params.PubSub)
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          params.Metrics,
		publisherFactory: factory,
		batchSize:        positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		backoff:          newPollBackoff(time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs))*time.Millisecond, maxBackoff),
	}, nil
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = s.backoff.fail()
		case processed:
			s.backoff.reset()
			continue
		default:
			s.backoff.reset()
			wait = s.backoff.idle()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch relays one locked batch. Once a row fails, later rows sharing its ordering key
// stay unpublished until the next batch so an order's events never overtake each other.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		blocked := make(map[string]bool)
		for _, event := range events {
			if err := s.relay(ctx, tx, event, blocked); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// relay publishes a single row and records its outcome. Only bookkeeping failures are returned.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, blocked map[string]bool) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, s.eventFields(event, nil))
	}

	fields := s.eventFields(event, resolved)
	msg := buildMessage(event, resolved)
	if msg.OrderingKey != "" && blocked[msg.OrderingKey] {
		s.logg.Debug(s.logg.WithFields(ctx, fields), "outbox event held behind failed predecessor")
		s.metrics.Inc(string(event.EventType), metrics.OutboxOutcomeHeld)
		return nil
	}

	err = s.publish(ctx, resolved.Descriptor.Topic, msg)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.metrics.Inc(string(event.EventType), metrics.OutboxOutcomePublished)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	if msg.OrderingKey != "" {
		blocked[msg.OrderingKey] = true
	}

	var unroutable unroutableError
	if errors.As(err, &unroutable) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUnroutable, err, fields)
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	s.metrics.Inc(string(event.EventType), metrics.OutboxOutcomeRetry)
	return nil
}

// deadLetter copies the row to the DLQ and marks it terminal. Wallet events are logged at
// error level since their loss has to be reconciled against the ledger by hand.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithFields(ctx, fields)
	if event.EventType.MovesFunds() {
		s.logg.Error(logCtx, "wallet event dead-lettered", err)
	} else {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox event will not be retried")
	}

	msg := err.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, entry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	s.metrics.Inc(string(event.EventType), metrics.OutboxOutcomeDLQ)
	return nil
}

func (s *Service) publish(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := s.publisherFactory(topic)
	if pub == nil {
		return unroutableError{topic: topic}
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// buildMessage carries the stored envelope untouched. Attributes mirror the row plus the
// marketplace identifiers found in the payload so subscriptions can filter without decoding.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := routingAttributes(resolved.Payload)
	attrs["event_id"] = resolved.Envelope.EventID
	attrs["event_type"] = string(event.EventType)
	attrs["aggregate_type"] = string(event.AggregateType)
	attrs["aggregate_id"] = event.AggregateID.String()
	attrs["created_at"] = event.CreatedAt.Format(time.RFC3339Nano)

	return &gcppubsub.Message{
		Data:        event.Payload,
		Attributes:  attrs,
		OrderingKey: orderingKey(attrs),
	}
}

func routingAttributes(payload any) map[string]string {
	attrs := make(map[string]string)
	setID := func(key string, id uuid.UUID) {
		if id != uuid.Nil {
			attrs[key] = id.String()
		}
	}

	switch p := payload.(type) {
	case *payloads.OrderPlacedEvent:
		setID("order_id", p.OrderID)
		setID("customer_id", p.CustomerID)
	case *payloads.StatusChangedEvent:
		setID("order_id", p.OrderID)
		if p.ShipmentID != nil {
			setID("shipment_id", *p.ShipmentID)
		}
		if p.NewStatus != "" {
			attrs["new_status"] = string(p.NewStatus)
		}
	case *payloads.EscrowReleasedEvent:
		setID("order_id", p.OrderID)
		setID("shipment_id", p.ShipmentID)
		setID("vendor_id", p.VendorID)
	case *payloads.FundsReversedEvent:
		setID("order_id", p.OrderID)
		setID("shipment_id", p.ShipmentID)
		setID("vendor_id", p.VendorID)
	case *payloads.EscrowMaturedEvent:
		setID("order_id", p.OrderID)
		setID("shipment_id", p.ShipmentID)
	case *payloads.PayoutRecordedEvent:
		setID("vendor_id", p.VendorID)
	}
	return attrs
}

// orderingKey groups an order's events together. Payouts have no order and fall back to the vendor.
func orderingKey(attrs map[string]string) string {
	if id := attrs["order_id"]; id != "" {
		return "order:" + id
	}
	if id := attrs["vendor_id"]; id != "" {
		return "vendor:" + id
	}
	return ""
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if event.EventType.MovesFunds() {
		fields["moves_funds"] = true
	}
	if resolved != nil {
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
		if resolved.Descriptor.Topic != "" {
			fields["topic"] = resolved.Descriptor.Topic
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pollBackoff doubles the wait after each failed batch up to max and resets on success.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	jitter  func(window time.Duration) time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &pollBackoff{
		base:    base,
		max:     max,
		current: base,
		jitter: func(window time.Duration) time.Duration {
			return time.Duration(rnd.Int63n(int64(window)))
		},
	}
}

func (b *pollBackoff) fail() time.Duration {
	next := b.current * 2
	if next <= 0 {
		next = b.base
	}
	if next > b.max {
		next = b.max
	}
	b.current = next
	return b.withJitter(next)
}

func (b *pollBackoff) idle() time.Duration {
	return b.withJitter(b.base)
}

func (b *pollBackoff) reset() {
	b.current = b.base
}

func (b *pollBackoff) withJitter(d time.Duration) time.Duration {
	if d <= 0 || b.jitter == nil {
		return d
	}
	return d + b.jitter(jitterWindow)
}

// orderedPublisherFactory enables message ordering on every topic handle it hands out.
func orderedPublisherFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		p.EnableMessageOrdering = true
		return &gcpPublisher{Publisher: p}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		publisher:     p.Publisher,
		orderingKey:   msg.OrderingKey,
	}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	publisher   *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed ordered publish pauses its key until resumed, so the
// key is resumed here and the row retried on a later batch.
func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.orderingKey != "" && r.publisher != nil {
		r.publisher.ResumePublish(r.orderingKey)
	}
	return id, err
}
