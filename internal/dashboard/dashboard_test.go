package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/outbox"
	"github.com/arooba/marketplace-backend/pkg/outbox/idempotency"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
	"github.com/arooba/marketplace-backend/pkg/outbox/registry"
)

type memoryStore struct {
	values  map[string]string
	failOn  string
	setCall int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return 0, errors.New("connection reset")
	}
	current, _ := strconv.ParseInt(m.values[key], 10, 64)
	current += delta
	m.values[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.setCall++
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = "1"
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryStore) CounterKey(name string) string { return "arb:counter:" + name }

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "arb:idempotency:" + scope + ":" + id
}

func d(value string) decimal.Decimal { return decimal.RequireFromString(value) }

func newConsumer(t *testing.T, store *memoryStore) (*Consumer, *Projector) {
	t.Helper()
	projector, err := NewProjector(store)
	require.NoError(t, err)
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	consumer, err := NewConsumer(projector, noopReceiver{}, registry.NewDomainDecoders(), manager,
		logger.New(logger.Options{ServiceName: "dashboard-test", Output: io.Discard}))
	require.NoError(t, err)
	return consumer, projector
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

func message(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Actor:      outbox.SystemActor("orders"),
		Data:       raw,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumerProjectsOrderPlacedOnce(t *testing.T) {
	store := newMemoryStore()
	consumer, projector := newConsumer(t, store)
	ctx := context.Background()
	vendorA, vendorB := uuid.New(), uuid.New()
	eventID := uuid.New()

	msg := message(t, enums.EventOrderPlaced, eventID, payloads.OrderPlacedEvent{
		OrderID:       uuid.New(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
		Subtotal:      d("2068.80"),
		DeliveryFee:   d("174.00"),
		Total:         d("2242.80"),
		VendorPayouts: []payloads.VendorAmount{
			{VendorID: vendorA, Amount: d("530.00")},
			{VendorID: vendorB, Amount: d("1060.00")},
		},
	})

	result := consumer.process(ctx, msg)
	require.True(t, result.ack)
	require.False(t, result.duplicate)

	again := consumer.process(ctx, msg)
	require.True(t, again.ack)
	require.True(t, again.duplicate)

	platform, err := projector.Platform(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), platform.Orders)
	require.Equal(t, "2242.80", platform.GMV.StringFixed(2))
	require.Equal(t, "174.00", platform.DeliveryFees.StringFixed(2))

	snapshotA, err := projector.Vendor(ctx, vendorA)
	require.NoError(t, err)
	require.Equal(t, int64(1), snapshotA.Orders)
	require.Equal(t, "530.00", snapshotA.Sales.StringFixed(2))

	snapshotB, err := projector.Vendor(ctx, vendorB)
	require.NoError(t, err)
	require.Equal(t, "1060.00", snapshotB.Sales.StringFixed(2))
}

func TestConsumerProjectsWalletMovements(t *testing.T) {
	store := newMemoryStore()
	consumer, projector := newConsumer(t, store)
	ctx := context.Background()
	vendorID := uuid.New()
	shipmentID := uuid.New()

	events := []*pubsub.Message{
		message(t, enums.EventEscrowReleased, uuid.New(), payloads.EscrowReleasedEvent{VendorID: vendorID, ShipmentID: shipmentID, Amount: d("530.00")}),
		message(t, enums.EventFundsReversed, uuid.New(), payloads.FundsReversedEvent{VendorID: vendorID, ShipmentID: shipmentID, Amount: d("530.00"), DrainedBalance: enums.BalanceStatusAvailable, Reason: enums.OrderStatusReturned}),
		message(t, enums.EventPayoutRecorded, uuid.New(), payloads.PayoutRecordedEvent{VendorID: vendorID, Amount: d("200.50")}),
		message(t, enums.EventEscrowMatured, uuid.New(), payloads.EscrowMaturedEvent{ShipmentID: shipmentID, VendorIDs: []uuid.UUID{vendorID}}),
	}
	for _, msg := range events {
		require.True(t, consumer.process(ctx, msg).ack)
	}

	snapshot, err := projector.Vendor(ctx, vendorID)
	require.NoError(t, err)
	require.Equal(t, "530.00", snapshot.Released.StringFixed(2))
	require.Equal(t, "530.00", snapshot.Reversed.StringFixed(2))
	require.Equal(t, "200.50", snapshot.Payouts.StringFixed(2))
	require.Equal(t, int64(1), snapshot.MaturedShipments)
	require.True(t, snapshot.Sales.IsZero())
}

func TestConsumerSkipsUnprojectedAndMalformedEvents(t *testing.T) {
	store := newMemoryStore()
	consumer, _ := newConsumer(t, store)
	ctx := context.Background()

	statusMsg := message(t, enums.EventOrderStatusChanged, uuid.New(), payloads.StatusChangedEvent{OrderID: uuid.New()})
	require.Equal(t, processResult{ack: true}, consumer.process(ctx, statusMsg))

	garbage := &pubsub.Message{Data: []byte("not json"), Attributes: map[string]string{"event_type": string(enums.EventOrderPlaced)}}
	require.Equal(t, processResult{ack: true}, consumer.process(ctx, garbage))

	badID := message(t, enums.EventPayoutRecorded, uuid.New(), payloads.PayoutRecordedEvent{})
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(badID.Data, &envelope))
	envelope.EventID = "not-a-uuid"
	badID.Data, _ = json.Marshal(envelope)
	require.Equal(t, processResult{ack: true}, consumer.process(ctx, badID))

	require.Zero(t, store.setCall)
}

func TestConsumerNacksAndReleasesMarkerOnStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.failOn = "released_minor"
	consumer, projector := newConsumer(t, store)
	ctx := context.Background()
	vendorID := uuid.New()
	msg := message(t, enums.EventEscrowReleased, uuid.New(), payloads.EscrowReleasedEvent{VendorID: vendorID, Amount: d("99.99")})

	require.True(t, consumer.process(ctx, msg).nack)

	store.failOn = ""
	require.Equal(t, processResult{ack: true}, consumer.process(ctx, msg))
	snapshot, err := projector.Vendor(ctx, vendorID)
	require.NoError(t, err)
	require.Equal(t, "99.99", snapshot.Released.StringFixed(2))
}

func TestProjectorReadRejectsCorruptCounter(t *testing.T) {
	store := newMemoryStore()
	projector, err := NewProjector(store)
	require.NoError(t, err)
	store.values[store.CounterKey(platformKey(counterOrders))] = "abc"

	_, err = projector.Platform(context.Background())
	require.Error(t, err)

	_, err = NewProjector(nil)
	require.Error(t, err)
}
