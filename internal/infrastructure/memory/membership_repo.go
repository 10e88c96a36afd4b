package memory

import (
	"context"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var (
	_ repository.MembershipRepository = (*MembershipRepo)(nil)
	_ repository.WorkerRepository     = (*WorkerRepo)(nil)
	_ repository.ProfileRepository    = (*ProfileRepo)(nil)
	_ repository.AuthUserRepository   = (*AuthUserRepo)(nil)
)

// MembershipRepo memberships en memoria; único por (tenant_id, user_id).
type MembershipRepo struct{ s *Store }

func (r *MembershipRepo) Create(_ context.Context, m *entity.Membership) error {
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.memberships {
		if existing.TenantID == m.TenantID && existing.UserID == m.UserID {
			return domain.ErrMembershipExists
		}
	}
	r.s.data.memberships[m.ID] = clone(m)
	return nil
}

func (r *MembershipRepo) GetByID(_ context.Context, id string) (*entity.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.memberships[id]), nil
}

func (r *MembershipRepo) GetByTenantAndUser(_ context.Context, tenantID, userID string) (*entity.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.data.memberships {
		if m.TenantID == tenantID && m.UserID == userID {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (r *MembershipRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.data.memberships,
		func(m *entity.Membership) bool { return m.TenantID == tenantID },
		func(a, b *entity.Membership) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (r *MembershipRepo) UpdateStatus(_ context.Context, id string, status entity.MembershipStatus) error {
	defer r.s.lockWrite()()
	m, ok := r.s.data.memberships[id]
	if !ok {
		return domain.ErrMembershipNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MembershipRepo) Delete(_ context.Context, id string) error {
	defer r.s.lockWrite()()
	delete(r.s.data.memberships, id)
	return nil
}

// WorkerRepo workers en memoria.
type WorkerRepo struct{ s *Store }

func (r *WorkerRepo) Create(_ context.Context, w *entity.Worker) error {
	defer r.s.lockWrite()()
	r.s.data.workers[w.ID] = clone(w)
	return nil
}

func (r *WorkerRepo) GetByMembershipID(_ context.Context, membershipID string) (*entity.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.data.workers {
		if w.MembershipID == membershipID {
			return clone(w), nil
		}
	}
	return nil, nil
}

func (r *WorkerRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.Worker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return sortedValues(r.s.data.workers,
		func(w *entity.Worker) bool { return w.TenantID == tenantID },
		func(a, b *entity.Worker) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (r *WorkerRepo) UpdateStatus(_ context.Context, id string, status entity.WorkerStatus) error {
	defer r.s.lockWrite()()
	w, ok := r.s.data.workers[id]
	if !ok {
		return domain.ErrNotFound
	}
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *WorkerRepo) Delete(_ context.Context, id string) error {
	defer r.s.lockWrite()()
	delete(r.s.data.workers, id)
	return nil
}

// ProfileRepo profiles en memoria.
type ProfileRepo struct{ s *Store }

func (r *ProfileRepo) Upsert(_ context.Context, p *entity.Profile) error {
	defer r.s.lockWrite()()
	next := clone(p)
	if cur, ok := r.s.data.profiles[p.ID]; ok {
		next.CreatedAt = cur.CreatedAt
		if next.FullName == "" {
			next.FullName = cur.FullName
		}
		if next.Phone == "" {
			next.Phone = cur.Phone
		}
	}
	r.s.data.profiles[p.ID] = next
	return nil
}

func (r *ProfileRepo) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.profiles[id]), nil
}

// AuthUserRepo auth_users en memoria; email único.
type AuthUserRepo struct{ s *Store }

func (r *AuthUserRepo) Create(_ context.Context, u *entity.AuthUser) error {
	defer r.s.lockWrite()()
	for _, existing := range r.s.data.authUsers {
		if existing.Email == entity.NormalizeEmail(u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	c := clone(u)
	c.Email = entity.NormalizeEmail(u.Email)
	r.s.data.authUsers[u.ID] = c
	return nil
}

func (r *AuthUserRepo) GetByID(_ context.Context, id string) (*entity.AuthUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return clone(r.s.data.authUsers[id]), nil
}

func (r *AuthUserRepo) GetByEmail(_ context.Context, email string) (*entity.AuthUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = entity.NormalizeEmail(email)
	for _, u := range r.s.data.authUsers {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (r *AuthUserRepo) Update(_ context.Context, u *entity.AuthUser) error {
	defer r.s.lockWrite()()
	if _, ok := r.s.data.authUsers[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.s.data.authUsers[u.ID] = clone(u)
	return nil
}

func (r *AuthUserRepo) Delete(_ context.Context, id string) error {
	defer r.s.lockWrite()()
	delete(r.s.data.authUsers, id)
	return nil
}
