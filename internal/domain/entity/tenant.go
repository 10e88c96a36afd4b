package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan de suscripción. "basic" y "pro" son alias heredados de la primera versión de precios.
type Plan string

const (
	PlanBasico      Plan = "basico"
	PlanProfesional Plan = "profesional"
	PlanBasic       Plan = "basic"
	PlanPro         Plan = "pro"
	PlanEnterprise  Plan = "enterprise"
)

// ParsePlan valida el código de plan recibido en la frontera.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanBasico, PlanProfesional, PlanBasic, PlanPro, PlanEnterprise:
		return p, true
	}
	return "", false
}

// Limits devuelve los límites de usuarios y campos del plan.
func (p Plan) Limits() (maxUsers, maxFields int) {
	if p == PlanBasico {
		return 10, 5
	}
	return 30, 20
}

// PaymentStatus estado de cobro de la organización.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentActive    PaymentStatus = "active"
	PaymentPastDue   PaymentStatus = "past_due"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentExpired   PaymentStatus = "expired"
	PaymentLegacy    PaymentStatus = "legacy"
)

// Tenant representa una organización (finca/empresa agrícola), frontera de aislamiento de datos.
type Tenant struct {
	ID            string
	Name          string
	Slug          string
	Plan          Plan
	ContactName   string
	ContactEmail  string
	CreatedBy     string // usuario dueño; nunca vacío
	MaxUsers      int    // <= 0 = ilimitado
	MaxFields     int
	CurrentUsers  int // nunca negativo
	CurrentFields int
	PaymentStatus PaymentStatus

	LemonSubscriptionID string
	LemonCustomerID     string
	LemonVariantID      string
	RenewsAt            *time.Time
	EndsAt              *time.Time
	PaymentFailedAt     *time.Time
	LastPaymentAmount   decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSeat informa si queda cupo para otra membresía activa.
func (t *Tenant) HasSeat() bool {
	return t.MaxUsers <= 0 || t.CurrentUsers < t.MaxUsers
}

// ApplyPlan cambia el plan y sus límites derivados.
func (t *Tenant) ApplyPlan(p Plan) {
	t.Plan = p
	t.MaxUsers, t.MaxFields = p.Limits()
}
