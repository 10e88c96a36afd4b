package memory

import (
	"context"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var (
	_ repository.TenantRepository = (*TenantRepo)(nil)
	_ repository.ModuleRepository = (*ModuleRepo)(nil)
)

// TenantRepo tenants en memoria.
type TenantRepo struct{ s *Store }

func (r *TenantRepo) Create(_ context.Context, t *entity.Tenant) error {
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.tenants {
		if existing.Slug == t.Slug {
			return domain.ErrSlugTaken
		}
	}
	if _, ok := r.s.data.tenants[t.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.data.tenants[t.ID] = clone(t)
	return nil
}

func (r *TenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.tenants[id]), nil
}

func (r *TenantRepo) GetBySlug(_ context.Context, slug string) (*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tenants {
		if t.Slug == slug {
			return clone(t), nil
		}
	}
	return nil, nil
}

func (r *TenantRepo) GetBySubscriptionID(_ context.Context, subscriptionID string) (*entity.Tenant, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tenants {
		if t.LemonSubscriptionID == subscriptionID {
			return clone(t), nil
		}
	}
	return nil, nil
}

func (r *TenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	t, err := r.GetBySlug(ctx, slug)
	return t != nil, err
}

func (r *TenantRepo) Update(_ context.Context, t *entity.Tenant) error {
	defer r.s.lockWrite()()
	cur, ok := r.s.data.tenants[t.ID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	for id, other := range r.s.data.tenants {
		if id != t.ID && other.Slug == t.Slug {
			return domain.ErrSlugTaken
		}
	}
	next := clone(t)
	// Los contadores solo cambian con ReserveSeat/ReleaseSeat.
	next.CurrentUsers = cur.CurrentUsers
	next.UpdatedAt = time.Now().UTC()
	r.s.data.tenants[t.ID] = next
	return nil
}

func (r *TenantRepo) ReserveSeat(_ context.Context, tenantID string) (int, error) {
	defer r.s.lockWrite()()
	t, ok := r.s.data.tenants[tenantID]
	if !ok {
		return 0, domain.ErrTenantNotFound
	}
	if !t.HasSeat() {
		return t.CurrentUsers, domain.ErrSeatLimitReached
	}
	t.CurrentUsers++
	t.UpdatedAt = time.Now().UTC()
	return t.CurrentUsers, nil
}

func (r *TenantRepo) ReleaseSeat(_ context.Context, tenantID string) error {
	defer r.s.lockWrite()()
	t, ok := r.s.data.tenants[tenantID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	if t.CurrentUsers > 0 {
		t.CurrentUsers--
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TenantRepo) Delete(_ context.Context, id string) error {
	defer r.s.lockWrite()()
	delete(r.s.data.tenants, id)
	return nil
}

// ModuleRepo tenant_modules en memoria.
type ModuleRepo struct{ s *Store }

func moduleKey(tenantID string, code entity.ModuleCode) string {
	return tenantID + "/" + string(code)
}

func (r *ModuleRepo) Enable(_ context.Context, tenantID string, codes []entity.ModuleCode) error {
	defer r.s.lockWrite()()
	now := time.Now().UTC()
	for _, c := range codes {
		key := moduleKey(tenantID, c)
		if m, ok := r.s.data.modules[key]; ok {
			m.Enabled = true
			continue
		}
		r.s.data.modules[key] = &entity.TenantModule{TenantID: tenantID, ModuleCode: c, Enabled: true, CreatedAt: now}
	}
	return nil
}

func (r *ModuleRepo) HasActiveModule(_ context.Context, tenantID string, code entity.ModuleCode) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.modules[moduleKey(tenantID, code)]
	return ok && m.Enabled, nil
}

func (r *ModuleRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.TenantModule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.data.modules,
		func(m *entity.TenantModule) bool { return m.TenantID == tenantID },
		func(a, b *entity.TenantModule) bool { return a.ModuleCode < b.ModuleCode },
	), nil
}
