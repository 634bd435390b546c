package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arooba/marketplace-backend/pkg/enums"
	"github.com/arooba/marketplace-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventPayoutRecorded, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	output, err := reg.Decode(enums.EventPayoutRecorded, 1, json.RawMessage(`{"reference":"bank-1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["reference"] != "bank-1" {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventPayoutRecorded, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected missing decoder error")
	}
}

func TestDomainDecodersDecodeTypedPayloads(t *testing.T) {
	reg := NewDomainDecoders()
	vendorID := uuid.New()
	raw := mustMarshal(t, payloads.EscrowReleasedEvent{
		VendorID:   vendorID,
		OrderID:    uuid.New(),
		ShipmentID: uuid.New(),
		Amount:     decimal.RequireFromString("530.00"),
	})

	out, err := reg.Decode(enums.EventEscrowReleased, 1, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	event, ok := out.(*payloads.EscrowReleasedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", out)
	}
	if event.VendorID != vendorID || !event.Amount.Equal(decimal.RequireFromString("530")) {
		t.Fatalf("payload mismatch %+v", event)
	}

	if _, err := reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`{"order_id":42}`)); err == nil {
		t.Fatalf("expected decode error for malformed payload")
	}
}
