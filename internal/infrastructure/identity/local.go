package identity

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/pkg/jwt"
)

var (
	_ ports.IdentityStore    = (*LocalStore)(nil)
	_ ports.PasswordVerifier = (*LocalStore)(nil)
)

// LocalConfig firma de los enlaces emitidos por el almacén local.
type LocalConfig struct {
	Secret        string
	Issuer        string
	InviteMinutes int
	SignInMinutes int
}

// LocalStore proveedor de identidad propio sobre auth_users: contraseñas bcrypt y enlaces
// de invitación/acceso firmados como JWT y enviados por correo.
type LocalStore struct {
	users  repository.AuthUserRepository
	mailer ports.Mailer
	cfg    LocalConfig
	log    zerolog.Logger
	now    func() time.Time
}

// NewLocalStore construye el almacén local.
func NewLocalStore(users repository.AuthUserRepository, mailer ports.Mailer, cfg LocalConfig, log zerolog.Logger) *LocalStore {
	if cfg.InviteMinutes <= 0 {
		cfg.InviteMinutes = int(entity.InvitationTTL / time.Minute)
	}
	if cfg.SignInMinutes <= 0 {
		cfg.SignInMinutes = 60
	}
	return &LocalStore{users: users, mailer: mailer, cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func toPort(u *entity.AuthUser) *ports.IdentityUser {
	if u == nil {
		return nil
	}
	return &ports.IdentityUser{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		Phone:            u.Phone,
		EmailConfirmedAt: u.EmailConfirmedAt,
		InvitedAt:        u.InvitedAt,
		CreatedAt:        u.CreatedAt,
	}
}

func (s *LocalStore) CreateUser(ctx context.Context, in ports.CreateUserInput) (*ports.IdentityUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &entity.AuthUser{
		ID:           uuid.New().String(),
		Email:        entity.NormalizeEmail(in.Email),
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Phone:        in.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.EmailConfirm {
		u.EmailConfirmedAt = &now
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return toPort(u), nil
}

func (s *LocalStore) GetUser(ctx context.Context, id string) (*ports.IdentityUser, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPort(u), nil
}

func (s *LocalStore) FindUserByEmail(ctx context.Context, email string) (*ports.IdentityUser, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toPort(u), nil
}

// UpdateUser fijar contraseña confirma el email del invitado.
func (s *LocalStore) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*ports.IdentityUser, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
		if u.EmailConfirmedAt == nil {
			now := s.now()
			u.EmailConfirmedAt = &now
		}
	}
	if in.FullName != "" {
		u.FullName = in.FullName
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return toPort(u), nil
}

func (s *LocalStore) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// InviteUserByEmail crea el usuario pendiente (sin contraseña) si no existe y envía el correo
// con el enlace de invitación más un token de acceso para aceptar.
func (s *LocalStore) InviteUserByEmail(ctx context.Context, email, redirectURL string, metadata map[string]any) (*ports.IdentityUser, error) {
	email = entity.NormalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		now := s.now()
		u = &entity.AuthUser{ID: uuid.New().String(), Email: email, InvitedAt: &now, CreatedAt: now, UpdatedAt: now}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
	}
	token, err := jwt.Generate(s.cfg.Secret, u.ID, u.Email, jwt.PurposeInvite, s.cfg.Issuer, s.cfg.InviteMinutes)
	if err != nil {
		return nil, err
	}
	link := redirectURL + "#access_token=" + token
	tenantName, _ := metadata["tenant_name"].(string)
	if tenantName == "" {
		tenantName = "AgroCloud"
	}
	body := fmt.Sprintf(`<p>Te invitaron a <strong>%s</strong> en AgroCloud.</p><p><a href="%s">Aceptar invitación</a></p>`,
		html.EscapeString(tenantName), html.EscapeString(link))
	if err := s.mailer.Send(ctx, ports.MailMessage{To: email, Subject: "Invitación a " + tenantName, HTML: body}); err != nil {
		return nil, fmt.Errorf("enviar invitación: %w", err)
	}
	return toPort(u), nil
}

// GenerateSignInLink enlace de acceso con un token de sesión de corta duración.
func (s *LocalStore) GenerateSignInLink(ctx context.Context, email, redirectURL string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", domain.ErrUserNotFound
	}
	token, err := jwt.Generate(s.cfg.Secret, u.ID, u.Email, jwt.PurposeSignIn, s.cfg.Issuer, s.cfg.SignInMinutes)
	if err != nil {
		return "", err
	}
	return redirectURL + "#access_token=" + token, nil
}

// VerifyPassword valida credenciales. Usuario inexistente, pendiente o contraseña errada
// devuelven domain.ErrUnauthorized sin distinguir.
func (s *LocalStore) VerifyPassword(ctx context.Context, email, password string) (*ports.IdentityUser, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return toPort(u), nil
}
