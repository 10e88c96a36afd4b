package usecase

import (
	"context"
	"slices"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// AccessService autoriza por membresía: el usuario debe tener una membresía activa
// en la organización y, si se indican, uno de los roles pedidos.
type AccessService struct {
	memberships repository.MembershipRepository
}

// NewAccessService construye el servicio.
func NewAccessService(memberships repository.MembershipRepository) *AccessService {
	return &AccessService{memberships: memberships}
}

// RequireRole devuelve la membresía del usuario o domain.ErrForbidden.
// Sin roles basta con ser miembro activo.
func (s *AccessService) RequireRole(ctx context.Context, tenantID, userID string, roles ...entity.Role) (*entity.Membership, error) {
	if tenantID == "" || userID == "" {
		return nil, domain.ErrForbidden
	}
	m, err := s.memberships.GetByTenantAndUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.IsActive() {
		return nil, domain.ErrForbidden
	}
	if len(roles) > 0 && !slices.Contains(roles, m.Role) {
		return nil, domain.ErrForbidden
	}
	return m, nil
}
