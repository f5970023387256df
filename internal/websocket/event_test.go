package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"ledgerId": 1,
		"amount":   "12000.00",
	}

	before := time.Now()
	evt := NewEvent(EventTypeRecorded, EntityTypePayment, payload)
	after := time.Now()

	assert.Equal(t, "payment.recorded", evt.Type)
	assert.Equal(t, EntityTypePayment, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"ledgerId": float64(1),
		"amount":   "12000.00",
		"status":   "partial",
	}

	evt := Event{
		Type:      "payment.recorded",
		Entity:    EntityTypePayment,
		Payload:   payload,
		Timestamp: fixedTime,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime.UTC(), decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), decodedPayload["ledgerId"])
	assert.Equal(t, "12000.00", decodedPayload["amount"])
	assert.Equal(t, "partial", decodedPayload["status"])
}

func TestEvent_ToJSON(t *testing.T) {
	payload := map[string]interface{}{
		"ledgerId": float64(42),
	}

	evt := NewEvent(EventTypeUpdated, EntityTypeLedger, payload)

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded map[string]interface{}
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "ledger.updated", decoded["type"])
	assert.Equal(t, "ledger", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestEvent_Helpers(t *testing.T) {
	payload := map[string]interface{}{
		"ledgerId": float64(1),
		"amount":   "5000.00",
	}

	t.Run("LedgerCreated", func(t *testing.T) {
		evt := LedgerCreated(payload)
		assert.Equal(t, "ledger.created", evt.Type)
		assert.Equal(t, EntityTypeLedger, evt.Entity)
		assert.Equal(t, payload, evt.Payload)
	})

	t.Run("LedgerUpdated", func(t *testing.T) {
		evt := LedgerUpdated(payload)
		assert.Equal(t, "ledger.updated", evt.Type)
		assert.Equal(t, EntityTypeLedger, evt.Entity)
		assert.Equal(t, payload, evt.Payload)
	})

	t.Run("PaymentRecorded", func(t *testing.T) {
		evt := PaymentRecorded(payload)
		assert.Equal(t, "payment.recorded", evt.Type)
		assert.Equal(t, EntityTypePayment, evt.Entity)
		assert.Equal(t, payload, evt.Payload)
	})

	t.Run("PaymentAdjusted", func(t *testing.T) {
		evt := PaymentAdjusted(payload)
		assert.Equal(t, "payment.adjusted", evt.Type)
		assert.Equal(t, EntityTypePayment, evt.Entity)
		assert.Equal(t, payload, evt.Payload)
	})
}
