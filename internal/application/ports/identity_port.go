package ports

import (
	"context"
	"time"
)

// IdentityUser usuario del proveedor de identidad.
type IdentityUser struct {
	ID               string
	Email            string
	FullName         string
	Phone            string
	EmailConfirmedAt *time.Time
	InvitedAt        *time.Time
	CreatedAt        time.Time
}

// CreateUserInput alta de usuario; EmailConfirm=true lo crea ya confirmado (sin verificación por email).
type CreateUserInput struct {
	Email        string
	Password     string
	FullName     string
	Phone        string
	EmailConfirm bool
	Metadata     map[string]any
}

// UpdateUserInput cambios opcionales; los campos vacíos no se tocan.
type UpdateUserInput struct {
	Password string
	FullName string
	Phone    string
}

// IdentityStore define el puerto de salida hacia el proveedor de identidad
// (API admin hosted o tabla local auth_users). Los Get/Find devuelven (nil, nil) si no existe.
// CreateUser devuelve domain.ErrEmailAlreadyExists si el email ya está registrado.
type IdentityStore interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*IdentityUser, error)
	GetUser(ctx context.Context, id string) (*IdentityUser, error)
	FindUserByEmail(ctx context.Context, email string) (*IdentityUser, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*IdentityUser, error)
	DeleteUser(ctx context.Context, id string) error
	// InviteUserByEmail envía el correo de invitación con redirectURL; puede devolver el usuario
	// pendiente que el proveedor materializó (o nil).
	InviteUserByEmail(ctx context.Context, email, redirectURL string, metadata map[string]any) (*IdentityUser, error)
	// GenerateSignInLink genera un enlace de acceso (magic link) para el email.
	GenerateSignInLink(ctx context.Context, email, redirectURL string) (string, error)
}

// PasswordVerifier valida credenciales locales (solo proveedor local).
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (*IdentityUser, error)
}
