package dto

import "time"

// RegisterTenantRequest alta de organización con su propietario.
type RegisterTenantRequest struct {
	TenantName   string `json:"tenantName" validate:"required,min=2,max=100"`
	Slug         string `json:"slug" validate:"omitempty,slug"`
	Plan         string `json:"plan" validate:"required,oneof=basico profesional basic pro enterprise"`
	ContactName  string `json:"contactName" validate:"required,min=2,max=100"`
	ContactEmail string `json:"contactEmail" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	PhoneNumber  string `json:"phoneNumber" validate:"omitempty,max=30"`
}

// TenantSummary organización expuesta en respuestas.
type TenantSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Plan          string     `json:"plan"`
	MaxUsers      int        `json:"max_users"`
	MaxFields     int        `json:"max_fields"`
	CurrentUsers  int        `json:"current_users"`
	PaymentStatus string     `json:"payment_status"`
	RenewsAt      *time.Time `json:"renews_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MembershipSummary membresía expuesta en respuestas.
type MembershipSummary struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	UserID     string     `json:"user_id"`
	RoleCode   string     `json:"role_code"`
	Status     string     `json:"status"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// RegisterTenantResponse resultado del alta.
type RegisterTenantResponse struct {
	Success    bool              `json:"success"`
	Tenant     TenantSummary     `json:"tenant"`
	User       UserSummary       `json:"user"`
	Membership MembershipSummary `json:"membership"`
}

// LimitsResponse uso de cupos de la organización.
type LimitsResponse struct {
	CurrentUsers int    `json:"current_users"`
	MaxUsers     int    `json:"max_users"`
	Plan         string `json:"plan"`
	CanAddMore   bool   `json:"can_add_more"`
}

// WorkerSummary perfil de trabajador expuesto en respuestas.
type WorkerSummary struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	AreaModule   string `json:"area_module"`
	MembershipID string `json:"membership_id,omitempty"`
	Status       string `json:"status"`
}

// MembersResponse listado de membresías.
type MembersResponse struct {
	Success bool                `json:"success"`
	Members []MembershipSummary `json:"members"`
}

// WorkersResponse listado de trabajadores.
type WorkersResponse struct {
	Success bool            `json:"success"`
	Workers []WorkerSummary `json:"workers"`
}

// ModulesResponse módulos habilitados de la organización.
type ModulesResponse struct {
	Success bool     `json:"success"`
	Modules []string `json:"modules"`
}
