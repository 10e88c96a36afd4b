package billing

import "github.com/jhoicas/agrocloud-api/internal/domain/entity"

// Event nombre de evento del proveedor de facturación (meta.event_name).
type Event string

const (
	EventOrderCreated        Event = "order_created"
	EventSubscriptionCreated Event = "subscription_created"
	EventSubscriptionUpdated Event = "subscription_updated"
	EventPaymentSuccess      Event = "subscription_payment_success"
	EventPaymentFailed       Event = "subscription_payment_failed"
	EventCancelled           Event = "subscription_cancelled"
	EventResumed             Event = "subscription_resumed"
	EventExpired             Event = "subscription_expired"
)

// Known informa si el evento tiene manejador.
func (e Event) Known() bool {
	switch e {
	case EventOrderCreated, EventSubscriptionCreated, EventSubscriptionUpdated,
		EventPaymentSuccess, EventPaymentFailed, EventCancelled, EventResumed, EventExpired:
		return true
	}
	return false
}

// Materializes informa si el evento puede crear la organización a partir de un checkout.
func (e Event) Materializes() bool {
	return e == EventOrderCreated || e == EventSubscriptionCreated
}

// NextStatus aplica la máquina de estados de payment_status.
// ok=false significa que la transición no aplica desde current.
func NextStatus(current entity.PaymentStatus, ev Event) (next entity.PaymentStatus, ok bool) {
	switch ev {
	case EventOrderCreated, EventSubscriptionCreated:
		switch current {
		case entity.PaymentPending, entity.PaymentActive, entity.PaymentLegacy:
			return entity.PaymentActive, true
		}
	case EventPaymentSuccess:
		switch current {
		case entity.PaymentPending, entity.PaymentActive, entity.PaymentPastDue:
			return entity.PaymentActive, true
		}
	case EventPaymentFailed:
		switch current {
		case entity.PaymentActive, entity.PaymentPastDue:
			return entity.PaymentPastDue, true
		}
	case EventCancelled:
		switch current {
		case entity.PaymentActive, entity.PaymentPastDue:
			return entity.PaymentCancelled, true
		}
	case EventResumed:
		if current == entity.PaymentCancelled {
			return entity.PaymentActive, true
		}
	case EventExpired:
		return entity.PaymentExpired, true
	}
	return current, false
}

// NextStatusFromCheckout es NextStatus para un alta pagada desde el checkout de la propia
// organización: además reactiva una suscripción cancelled o expired.
func NextStatusFromCheckout(current entity.PaymentStatus, ev Event) (entity.PaymentStatus, bool) {
	if ev.Materializes() && (current == entity.PaymentCancelled || current == entity.PaymentExpired) {
		return entity.PaymentActive, true
	}
	return NextStatus(current, ev)
}

// CanTransition valida un cambio directo de estado (subscription_updated).
// Mantener el mismo estado siempre es válido.
func CanTransition(from, to entity.PaymentStatus) bool {
	if from == to || to == entity.PaymentExpired {
		return true
	}
	switch from {
	case entity.PaymentPending:
		return to == entity.PaymentActive
	case entity.PaymentActive:
		return to == entity.PaymentPastDue || to == entity.PaymentCancelled
	case entity.PaymentPastDue:
		return to == entity.PaymentActive || to == entity.PaymentCancelled
	case entity.PaymentCancelled:
		return to == entity.PaymentActive
	}
	return false
}

// StatusFromProvider traduce el status de la suscripción del proveedor al estado local.
func StatusFromProvider(status string) (entity.PaymentStatus, bool) {
	switch status {
	case "active", "on_trial":
		return entity.PaymentActive, true
	case "past_due", "unpaid":
		return entity.PaymentPastDue, true
	case "cancelled":
		return entity.PaymentCancelled, true
	case "expired":
		return entity.PaymentExpired, true
	}
	return "", false
}
