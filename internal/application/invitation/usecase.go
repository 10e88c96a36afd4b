// Package invitation emite invitaciones a una organización y las resuelve en membresías activas.
package invitation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/pkg/metrics"
	"github.com/jhoicas/agrocloud-api/pkg/validation"
)

const tokenBytes = 32

// UseCase orquestador de invitaciones.
type UseCase struct {
	identity    ports.IdentityStore
	tenants     repository.TenantRepository
	memberships repository.MembershipRepository
	invitations repository.InvitationRepository
	profiles    repository.ProfileRepository
	tx          ports.TxRunner
	log         zerolog.Logger
	metrics     *metrics.Metrics
	baseURL     string
	now         func() time.Time
}

// NewUseCase construye el orquestador. m puede ser nil.
func NewUseCase(
	identity ports.IdentityStore,
	repos repository.Registry,
	tx ports.TxRunner,
	log zerolog.Logger,
	m *metrics.Metrics,
	baseURL string,
) *UseCase {
	return &UseCase{
		identity:    identity,
		tenants:     repos.Tenants,
		memberships: repos.Memberships,
		invitations: repos.Invitations,
		profiles:    repos.Profiles,
		tx:          tx,
		log:         log,
		metrics:     m,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Invite agrega directamente a un usuario ya registrado o le envía una invitación por email.
// callerID es el usuario autenticado que invita (invited_by).
func (uc *UseCase) Invite(ctx context.Context, in dto.InviteRequest, callerID string) (*dto.InviteResponse, error) {
	resp, err := uc.invite(ctx, in, callerID)
	uc.observe("invite", err)
	return resp, err
}

func (uc *UseCase) invite(ctx context.Context, in dto.InviteRequest, callerID string) (*dto.InviteResponse, error) {
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.Email = entity.NormalizeEmail(in.Email)
	in.RoleCode = strings.TrimSpace(in.RoleCode)
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	role, _ := entity.ParseRole(in.RoleCode)
	invitedBy := callerID
	if invitedBy == "" {
		invitedBy = in.InvitedBy
	}

	t, err := uc.tenants.GetByID(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}
	if !t.HasSeat() {
		return nil, domain.ErrSeatLimitReached
	}

	user, err := uc.identity.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, domain.Upstream("identity", err)
	}
	if established(user) {
		return uc.addExisting(ctx, t, user, role, invitedBy)
	}

	inv, inviteURL, err := uc.issue(ctx, t, in.Email, role, invitedBy)
	if err != nil {
		return nil, err
	}
	summary := dto.InvitationFromEntity(inv, uc.now())
	return &dto.InviteResponse{
		Success: true,
		Message: "Invitación enviada a " + in.Email,
		Data:    dto.InviteData{Invitation: &summary, InviteURL: inviteURL},
	}, nil
}

// IssueOwnerInvitation invita al propietario de una organización materializada por el sistema.
// Si el email ya corresponde a un usuario registrado, la membresía owner se crea directamente.
func (uc *UseCase) IssueOwnerInvitation(ctx context.Context, t *entity.Tenant, email string) error {
	email = entity.NormalizeEmail(email)
	user, err := uc.identity.FindUserByEmail(ctx, email)
	if err != nil {
		return domain.Upstream("identity", err)
	}
	if established(user) {
		_, err := uc.addExisting(ctx, t, user, entity.RoleOwner, "")
		return err
	}
	_, _, err = uc.issue(ctx, t, email, entity.RoleOwner, "")
	uc.observe("owner_invite", err)
	return err
}

func (uc *UseCase) addExisting(ctx context.Context, t *entity.Tenant, user *ports.IdentityUser, role entity.Role, invitedBy string) (*dto.InviteResponse, error) {
	existing, err := uc.memberships.GetByTenantAndUser(ctx, t.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		var m *entity.Membership
		err = uc.tx.Run(ctx, func(repos repository.Registry) error {
			var err error
			m, err = grantMembership(ctx, repos, t.ID, user, role, invitedBy, uc.now(), "direct")
			return err
		})
		if err == nil {
			uc.log.Info().Str("tenant_id", t.ID).Str("user_id", user.ID).Str("role", string(role)).
				Msg("membresía creada para usuario existente")
			summary := dto.MembershipFromEntity(m)
			return &dto.InviteResponse{Success: true, Message: "Usuario agregado a la organización", Data: dto.InviteData{Membership: &summary}}, nil
		}
		if !errors.Is(err, domain.ErrMembershipExists) {
			return nil, err
		}
		if existing, err = uc.memberships.GetByTenantAndUser(ctx, t.ID, user.ID); err != nil || existing == nil {
			return nil, domain.ErrMembershipExists
		}
	}
	summary := dto.MembershipFromEntity(existing)
	return &dto.InviteResponse{
		Success: true,
		Message: domain.ErrMembershipExists.Error(),
		Data:    dto.InviteData{Membership: &summary, AlreadyMember: true},
	}, nil
}

// issue persiste la invitación y pide al proveedor de identidad el correo.
// Si el correo falla la invitación se elimina.
func (uc *UseCase) issue(ctx context.Context, t *entity.Tenant, email string, role entity.Role, invitedBy string) (*entity.Invitation, string, error) {
	now := uc.now()
	pending, err := uc.invitations.FindPending(ctx, t.ID, email, role, now)
	if err != nil {
		return nil, "", err
	}
	if pending != nil {
		return nil, "", domain.ErrInvitationExists
	}
	if err := uc.invitations.RevokeExpired(ctx, t.ID, email, role, now); err != nil {
		return nil, "", err
	}

	token, err := newToken()
	if err != nil {
		return nil, "", err
	}
	inv := &entity.Invitation{
		ID:        uuid.New().String(),
		TenantID:  t.ID,
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(entity.InvitationTTL),
		CreatedAt: now,
	}
	if err := uc.invitations.Create(ctx, inv); err != nil {
		return nil, "", err
	}

	link := uc.inviteURL(token, role)
	invited, err := uc.identity.InviteUserByEmail(ctx, email, link, map[string]any{
		"tenant_id":     t.ID,
		"tenant_name":   t.Name,
		"role_code":     string(role),
		"invitation_id": inv.ID,
	})
	if err != nil {
		if derr := uc.invitations.Delete(context.WithoutCancel(ctx), inv.ID); derr != nil {
			uc.log.Error().Err(derr).Str("invitation_id", inv.ID).Msg("no se pudo eliminar la invitación tras fallo de correo")
		}
		return nil, "", domain.Upstream("identity", err)
	}

	if invited != nil && invited.ID != "" {
		if err := uc.profiles.Upsert(ctx, &entity.Profile{ID: invited.ID, Email: email, CreatedAt: now}); err != nil {
			uc.log.Warn().Err(err).Str("user_id", invited.ID).Msg("no se pudo crear el perfil del invitado")
		}
	}
	uc.log.Info().Str("tenant_id", t.ID).Str("invitation_id", inv.ID).Str("role", string(role)).Msg("invitación emitida")
	return inv, link, nil
}

// Accept consume el token en nombre del usuario autenticado callerID.
func (uc *UseCase) Accept(ctx context.Context, in dto.AcceptInvitationRequest, callerID string) (*dto.AcceptInvitationResponse, error) {
	resp, err := uc.accept(ctx, in, callerID)
	uc.observe("accept", err)
	return resp, err
}

func (uc *UseCase) accept(ctx context.Context, in dto.AcceptInvitationRequest, callerID string) (*dto.AcceptInvitationResponse, error) {
	in.Token = strings.TrimSpace(in.Token)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	if callerID == "" {
		return nil, domain.ErrUnauthorized
	}

	inv, err := uc.usable(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	caller, err := uc.identity.GetUser(ctx, callerID)
	if err != nil {
		return nil, domain.Upstream("identity", err)
	}
	if caller == nil {
		return nil, domain.ErrUnauthorized
	}
	if entity.NormalizeEmail(caller.Email) != entity.NormalizeEmail(inv.Email) {
		return nil, domain.ErrInvitationEmail
	}
	t, err := uc.tenants.GetByID(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}

	if in.FullName != "" {
		caller.FullName = in.FullName
	}
	if in.Phone != "" {
		caller.Phone = in.Phone
	}

	now := uc.now()
	var m *entity.Membership
	err = uc.tx.Run(ctx, func(repos repository.Registry) error {
		ok, err := repos.Invitations.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvitationConsumed
		}
		m, err = grantMembership(ctx, repos, t.ID, caller, inv.Role, inv.InvitedBy, now, "invitation")
		return err
	})
	if err != nil {
		return nil, err
	}

	// El usuario de identidad se modifica solo con la invitación ya consumida.
	if in.Password != "" || in.FullName != "" || in.Phone != "" {
		if _, err := uc.identity.UpdateUser(ctx, caller.ID, ports.UpdateUserInput{
			Password: in.Password,
			FullName: in.FullName,
			Phone:    in.Phone,
		}); err != nil {
			uc.log.Warn().Err(err).Str("user_id", caller.ID).Msg("no se pudo actualizar el usuario de identidad")
		}
	}
	if err := uc.profiles.Upsert(ctx, &entity.Profile{
		ID: caller.ID, Email: caller.Email, FullName: caller.FullName, Phone: caller.Phone, CreatedAt: now,
	}); err != nil {
		uc.log.Warn().Err(err).Str("user_id", caller.ID).Msg("no se pudo actualizar el perfil")
	}
	uc.log.Info().Str("tenant_id", t.ID).Str("invitation_id", inv.ID).Str("user_id", caller.ID).Msg("invitación aceptada")

	return &dto.AcceptInvitationResponse{Success: true, Membership: dto.MembershipFromEntity(m), TenantID: t.ID}, nil
}

// Preview vista pública de una invitación por token.
func (uc *UseCase) Preview(ctx context.Context, token string) (*dto.InvitationPreviewResponse, error) {
	inv, err := uc.invitations.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvitationNotFound
	}
	t, err := uc.tenants.GetByID(ctx, inv.TenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTenantNotFound
	}
	return &dto.InvitationPreviewResponse{
		Success:    true,
		TenantName: t.Name,
		Email:      inv.Email,
		RoleCode:   string(inv.Role),
		Status:     inv.State(uc.now()),
		ExpiresAt:  inv.ExpiresAt,
	}, nil
}

// Revoke deja inerte una invitación pendiente de la organización.
func (uc *UseCase) Revoke(ctx context.Context, tenantID, invitationID string) error {
	inv, err := uc.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv == nil || inv.TenantID != tenantID {
		return domain.ErrInvitationNotFound
	}
	ok, err := uc.invitations.Revoke(ctx, inv.ID, uc.now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvitationConsumed
	}
	uc.observe("revoke", nil)
	return nil
}

// ListPending invitaciones vigentes de la organización.
func (uc *UseCase) ListPending(ctx context.Context, tenantID string) (*dto.InvitationListResponse, error) {
	now := uc.now()
	list, err := uc.invitations.ListPendingByTenant(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InvitationSummary, 0, len(list))
	for _, inv := range list {
		out = append(out, dto.InvitationFromEntity(inv, now))
	}
	return &dto.InvitationListResponse{Success: true, Invitations: out}, nil
}

func (uc *UseCase) usable(ctx context.Context, token string) (*entity.Invitation, error) {
	inv, err := uc.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvitationNotFound
	}
	switch inv.State(uc.now()) {
	case entity.InvitationExpired:
		return nil, domain.ErrInvitationExpired
	case entity.InvitationAccepted, entity.InvitationRevoked:
		return nil, domain.ErrInvitationConsumed
	}
	return inv, nil
}

func (uc *UseCase) inviteURL(token string, role entity.Role) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("role", string(role))
	return uc.baseURL + "/invitations/accept?" + q.Encode()
}

func (uc *UseCase) observe(operation string, err error) {
	if uc.metrics == nil {
		return
	}
	result := "ok"
	var verr *domain.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		result = "invalid"
	case errors.Is(err, domain.ErrSeatLimitReached):
		result = "seat_limit"
	case errors.Is(err, domain.ErrInvitationExists), errors.Is(err, domain.ErrMembershipExists),
		errors.Is(err, domain.ErrInvitationConsumed), errors.Is(err, domain.ErrInvitationExpired):
		result = "conflict"
	default:
		result = "error"
	}
	uc.metrics.Invitations.WithLabelValues(operation, result).Inc()
}

// grantMembership reserva un cupo y crea membresía activa, trabajador y auditoría con los repos de la tx.
func grantMembership(
	ctx context.Context,
	repos repository.Registry,
	tenantID string,
	user *ports.IdentityUser,
	role entity.Role,
	invitedBy string,
	now time.Time,
	source string,
) (*entity.Membership, error) {
	if _, err := repos.Tenants.ReserveSeat(ctx, tenantID); err != nil {
		return nil, err
	}
	accepted := now
	m := &entity.Membership{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		UserID:     user.ID,
		Role:       role,
		Status:     entity.MembershipActive,
		InvitedBy:  invitedBy,
		AcceptedAt: &accepted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repos.Memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := repos.Workers.Create(ctx, tenant.NewWorker(tenantID, m, user.FullName, user.Email, user.Phone, now)); err != nil {
		return nil, fmt.Errorf("crear trabajador: %w", err)
	}
	if err := repos.Audit.Create(ctx, &entity.AuditLog{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		ActorUserID: invitedBy,
		Action:      tenant.AuditMemberAdded,
		Entity:      "membership",
		EntityID:    m.ID,
		Details:     map[string]any{"user_id": user.ID, "role_code": string(role), "source": source},
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("auditoría: %w", err)
	}
	return m, nil
}

// established distingue un usuario con identidad completa de uno pendiente
// que el proveedor materializó al enviar una invitación anterior.
func established(u *ports.IdentityUser) bool {
	if u == nil {
		return false
	}
	return u.EmailConfirmedAt != nil || u.InvitedAt == nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generar token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
