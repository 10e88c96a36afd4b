package entity

import (
	"strings"
	"time"
)

// InvitationTTL vigencia única de las invitaciones.
const InvitationTTL = 7 * 24 * time.Hour

// Estados derivados de una invitación.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

// Invitation invitación de un solo uso a una organización.
// Token es un valor aleatorio opaco (columna token_hash, no es un hash).
type Invitation struct {
	ID         string
	TenantID   string
	Email      string
	Role       Role
	Token      string
	InvitedBy  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// State devuelve el estado de la invitación en el instante now.
func (i *Invitation) State(now time.Time) string {
	switch {
	case i.AcceptedAt != nil:
		return InvitationAccepted
	case i.RevokedAt != nil:
		return InvitationRevoked
	case !i.ExpiresAt.After(now):
		return InvitationExpired
	default:
		return InvitationPending
	}
}

// IsPending atajo de State(now) == pending.
func (i *Invitation) IsPending(now time.Time) bool {
	return i.State(now) == InvitationPending
}

// NormalizeEmail normaliza un email para comparaciones e índices.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
