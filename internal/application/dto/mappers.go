package dto

import (
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// TenantFromEntity mapea la organización a su resumen.
func TenantFromEntity(t *entity.Tenant) TenantSummary {
	return TenantSummary{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Plan:          string(t.Plan),
		MaxUsers:      t.MaxUsers,
		MaxFields:     t.MaxFields,
		CurrentUsers:  t.CurrentUsers,
		PaymentStatus: string(t.PaymentStatus),
		RenewsAt:      t.RenewsAt,
		EndsAt:        t.EndsAt,
		CreatedAt:     t.CreatedAt,
	}
}

// MembershipFromEntity mapea la membresía a su resumen.
func MembershipFromEntity(m *entity.Membership) MembershipSummary {
	return MembershipSummary{
		ID:         m.ID,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		RoleCode:   string(m.Role),
		Status:     string(m.Status),
		AcceptedAt: m.AcceptedAt,
	}
}

// InvitationFromEntity mapea la invitación a su resumen (nunca expone el token).
func InvitationFromEntity(inv *entity.Invitation, now time.Time) InvitationSummary {
	return InvitationSummary{
		ID:        inv.ID,
		TenantID:  inv.TenantID,
		Email:     inv.Email,
		RoleCode:  string(inv.Role),
		Status:    inv.State(now),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

// WorkerFromEntity mapea el trabajador a su resumen.
func WorkerFromEntity(w *entity.Worker) WorkerSummary {
	return WorkerSummary{
		ID:           w.ID,
		FullName:     w.FullName,
		Email:        w.Email,
		Phone:        w.Phone,
		AreaModule:   w.AreaModule,
		MembershipID: w.MembershipID,
		Status:       string(w.Status),
	}
}
