package billing

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// SystemUserResolver resuelve el usuario de sistema usado como created_by
// de las organizaciones materializadas desde un pago.
type SystemUserResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// OwnerInviter emite la invitación del propietario tras materializar la organización.
// Lo implementa *invitation.UseCase.
type OwnerInviter interface {
	IssueOwnerInvitation(ctx context.Context, t *entity.Tenant, email string) error
}

// PlanCatalog traduce entre planes y variantes del proveedor.
type PlanCatalog struct {
	byPlan    map[entity.Plan]string
	byVariant map[string]entity.Plan
}

// NewPlanCatalog construye el catálogo desde el mapa plan → variant id de la configuración.
// Los alias heredados comparten variante: basic → basico, pro → profesional.
func NewPlanCatalog(variants map[string]string) PlanCatalog {
	c := PlanCatalog{byPlan: map[entity.Plan]string{}, byVariant: map[string]entity.Plan{}}
	for code, variant := range variants {
		p, ok := entity.ParsePlan(code)
		if !ok || variant == "" {
			continue
		}
		c.byPlan[p] = variant
		c.byVariant[variant] = p
	}
	if v, ok := c.byPlan[entity.PlanBasico]; ok {
		c.byPlan[entity.PlanBasic] = v
	}
	if v, ok := c.byPlan[entity.PlanProfesional]; ok {
		c.byPlan[entity.PlanPro] = v
	}
	return c
}

// Variant devuelve el variant id del plan.
func (c PlanCatalog) Variant(p entity.Plan) (string, bool) {
	v, ok := c.byPlan[p]
	return v, ok
}

// Plan devuelve el plan de un variant id.
func (c PlanCatalog) Plan(variantID string) (entity.Plan, bool) {
	p, ok := c.byVariant[variantID]
	return p, ok
}
