package entity

import "time"

// Role código de rol dentro de una organización.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleCampo    Role = "campo"
	RoleEmpaque  Role = "empaque"
	RoleFinanzas Role = "finanzas"
)

// ParseRole valida el código de rol; rechaza valores desconocidos.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleAdmin, RoleCampo, RoleEmpaque, RoleFinanzas:
		return r, true
	}
	return "", false
}

// Invitable informa si el rol puede asignarse por invitación de un administrador.
// El propietario solo se asigna al crear la organización.
func (r Role) Invitable() bool {
	switch r {
	case RoleAdmin, RoleCampo, RoleEmpaque, RoleFinanzas:
		return true
	}
	return false
}

// AreaModule módulo operativo por defecto del trabajador con este rol.
func (r Role) AreaModule() string {
	switch r {
	case RoleCampo, RoleEmpaque, RoleFinanzas:
		return string(r)
	}
	return "general"
}

// MembershipStatus estado de la membresía.
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipPending  MembershipStatus = "pending"
	MembershipInactive MembershipStatus = "inactive"
)

// Membership une un usuario de identidad con una organización y su rol.
// Toda membresía activa ocupa un cupo (current_users), incluida la del propietario.
type Membership struct {
	ID         string
	TenantID   string
	UserID     string
	Role       Role
	Status     MembershipStatus
	InvitedBy  string
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive informa si la membresía está activa.
func (m *Membership) IsActive() bool {
	return m.Status == MembershipActive
}

// WorkerStatus estado del perfil de trabajador.
type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "active"
	WorkerInactive WorkerStatus = "inactive"
)

// Worker perfil operativo del miembro (asistencia, labores), fila separada de la membresía.
type Worker struct {
	ID           string
	TenantID     string
	FullName     string
	DocumentID   string
	Email        string
	Phone        string
	AreaModule   string
	MembershipID string
	Status       WorkerStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
