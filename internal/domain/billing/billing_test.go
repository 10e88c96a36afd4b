package billing_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/internal/domain/billing"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Firma HMAC del webhook
// ──────────────────────────────────────────────────────────────────────────────

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"meta":{"event_name":"order_created"},"data":{"id":"1"}}`)
	sig := billing.Sign("s3cr3t", body)

	assert.Len(t, sig, 64)
	assert.True(t, billing.VerifySignature("s3cr3t", body, sig))
	assert.True(t, billing.VerifySignature("s3cr3t", body, " "+sig+" "))

	t.Run("cuerpo alterado", func(t *testing.T) {
		tampered := []byte(`{"meta":{"event_name":"order_created"},"data":{"id":"2"}}`)
		assert.False(t, billing.VerifySignature("s3cr3t", tampered, sig))
	})
	t.Run("otro secreto", func(t *testing.T) {
		assert.False(t, billing.VerifySignature("otro", body, sig))
	})
	t.Run("firma vacía o no hex", func(t *testing.T) {
		assert.False(t, billing.VerifySignature("s3cr3t", body, ""))
		assert.False(t, billing.VerifySignature("s3cr3t", body, "zz"))
	})
	t.Run("sin secreto configurado", func(t *testing.T) {
		assert.False(t, billing.VerifySignature("", body, billing.Sign("", body)))
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados de payment_status
// ──────────────────────────────────────────────────────────────────────────────

func TestNextStatus(t *testing.T) {
	cases := []struct {
		from entity.PaymentStatus
		ev   billing.Event
		want entity.PaymentStatus
		ok   bool
	}{
		{entity.PaymentPending, billing.EventOrderCreated, entity.PaymentActive, true},
		{entity.PaymentPending, billing.EventSubscriptionCreated, entity.PaymentActive, true},
		{entity.PaymentActive, billing.EventPaymentSuccess, entity.PaymentActive, true},
		{entity.PaymentPastDue, billing.EventPaymentSuccess, entity.PaymentActive, true},
		{entity.PaymentActive, billing.EventPaymentFailed, entity.PaymentPastDue, true},
		{entity.PaymentActive, billing.EventCancelled, entity.PaymentCancelled, true},
		{entity.PaymentPastDue, billing.EventCancelled, entity.PaymentCancelled, true},
		{entity.PaymentCancelled, billing.EventResumed, entity.PaymentActive, true},
		{entity.PaymentActive, billing.EventExpired, entity.PaymentExpired, true},
		{entity.PaymentCancelled, billing.EventExpired, entity.PaymentExpired, true},

		{entity.PaymentCancelled, billing.EventPaymentSuccess, entity.PaymentCancelled, false},
		{entity.PaymentCancelled, billing.EventPaymentFailed, entity.PaymentCancelled, false},
		{entity.PaymentExpired, billing.EventResumed, entity.PaymentExpired, false},
		{entity.PaymentActive, billing.EventResumed, entity.PaymentActive, false},
		{entity.PaymentPending, billing.EventCancelled, entity.PaymentPending, false},
		{entity.PaymentExpired, billing.EventOrderCreated, entity.PaymentExpired, false},
	}
	for _, tc := range cases {
		got, ok := billing.NextStatus(tc.from, tc.ev)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.from, tc.ev)
		assert.Equal(t, tc.want, got, "%s + %s", tc.from, tc.ev)
	}
}

func TestNextStatusFromCheckout(t *testing.T) {
	for _, from := range []entity.PaymentStatus{entity.PaymentCancelled, entity.PaymentExpired, entity.PaymentLegacy} {
		for _, ev := range []billing.Event{billing.EventOrderCreated, billing.EventSubscriptionCreated} {
			got, ok := billing.NextStatusFromCheckout(from, ev)
			assert.True(t, ok, "%s + %s", from, ev)
			assert.Equal(t, entity.PaymentActive, got, "%s + %s", from, ev)
		}
	}

	got, ok := billing.NextStatusFromCheckout(entity.PaymentCancelled, billing.EventPaymentSuccess)
	assert.False(t, ok)
	assert.Equal(t, entity.PaymentCancelled, got)
	got, ok = billing.NextStatusFromCheckout(entity.PaymentPastDue, billing.EventPaymentFailed)
	assert.True(t, ok)
	assert.Equal(t, entity.PaymentPastDue, got)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, billing.CanTransition(entity.PaymentActive, entity.PaymentActive))
	assert.True(t, billing.CanTransition(entity.PaymentActive, entity.PaymentPastDue))
	assert.True(t, billing.CanTransition(entity.PaymentLegacy, entity.PaymentExpired))
	assert.False(t, billing.CanTransition(entity.PaymentExpired, entity.PaymentActive))
	assert.False(t, billing.CanTransition(entity.PaymentPending, entity.PaymentCancelled))
}

func TestStatusFromProvider(t *testing.T) {
	s, ok := billing.StatusFromProvider("on_trial")
	assert.True(t, ok)
	assert.Equal(t, entity.PaymentActive, s)

	s, ok = billing.StatusFromProvider("unpaid")
	assert.True(t, ok)
	assert.Equal(t, entity.PaymentPastDue, s)

	_, ok = billing.StatusFromProvider("paused")
	assert.False(t, ok)
}

func TestEventKnown(t *testing.T) {
	assert.True(t, billing.EventPaymentFailed.Known())
	assert.False(t, billing.Event("license_key_created").Known())
	assert.True(t, billing.EventOrderCreated.Materializes())
	assert.False(t, billing.EventPaymentSuccess.Materializes())
}

func TestProviderID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A billing.ProviderID `json:"a"`
		B billing.ProviderID `json:"b"`
		C billing.ProviderID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"sub_1","b":42,"c":null}`), &v))
	assert.Equal(t, billing.ProviderID("sub_1"), v.A)
	assert.Equal(t, "42", v.B.String())
	assert.Empty(t, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":4.5}`), &v))
}
