package dto

import "time"

// InviteRequest invitación de un usuario a la organización. El propietario no se invita.
type InviteRequest struct {
	TenantID  string `json:"tenantId" validate:"required,uuid"`
	Email     string `json:"email" validate:"required,email,max=254"`
	RoleCode  string `json:"roleCode" validate:"required,oneof=admin campo empaque finanzas"`
	InvitedBy string `json:"invitedBy" validate:"omitempty,uuid"`
}

// InvitationSummary invitación expuesta en respuestas (sin token).
type InvitationSummary struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	RoleCode  string    `json:"role_code"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteData resultado: membresía directa o invitación por email.
type InviteData struct {
	Membership    *MembershipSummary `json:"membership,omitempty"`
	Invitation    *InvitationSummary `json:"invitation,omitempty"`
	InviteURL     string             `json:"inviteUrl,omitempty"`
	AlreadyMember bool               `json:"alreadyMember,omitempty"`
}

// InviteResponse respuesta de POST /tenant/invite.
type InviteResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    InviteData `json:"data"`
}

// AcceptInvitationRequest aceptación; password/fullName/phone opcionales.
type AcceptInvitationRequest struct {
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
	FullName string `json:"fullName" validate:"omitempty,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

// AcceptInvitationResponse membresía activada.
type AcceptInvitationResponse struct {
	Success    bool              `json:"success"`
	Membership MembershipSummary `json:"membership"`
	TenantID   string            `json:"tenantId"`
}

// InvitationPreviewResponse vista previa pública del token.
type InvitationPreviewResponse struct {
	Success    bool      `json:"success"`
	TenantName string    `json:"tenantName"`
	Email      string    `json:"email"`
	RoleCode   string    `json:"roleCode"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// InvitationListResponse invitaciones pendientes.
type InvitationListResponse struct {
	Success     bool                `json:"success"`
	Invitations []InvitationSummary `json:"invitations"`
}
