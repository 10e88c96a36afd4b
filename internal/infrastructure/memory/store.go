// Package memory implementa los puertos de persistencia en memoria (modo desarrollo y tests).
// Replica las restricciones únicas del esquema PostgreSQL para que los casos de uso
// observen las mismas señales de conflicto.
package memory

import (
	"sort"
	"sync"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// Store estado compartido de todos los repositorios en memoria.
// Las escrituras fuera de una transacción esperan a que termine la transacción en curso,
// así un rollback no pisa cambios ajenos.
type Store struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	data *state
	inTx bool
}

type state struct {
	tenants     map[string]*entity.Tenant
	memberships map[string]*entity.Membership
	workers     map[string]*entity.Worker
	invitations map[string]*entity.Invitation
	checkouts   map[string]*entity.Checkout
	events      map[string]*entity.WebhookEvent
	profiles    map[string]*entity.Profile
	authUsers   map[string]*entity.AuthUser
	modules     map[string]*entity.TenantModule
	audit       []*entity.AuditLog
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, txMu: &sync.Mutex{}, data: &state{
		tenants:     map[string]*entity.Tenant{},
		memberships: map[string]*entity.Membership{},
		workers:     map[string]*entity.Worker{},
		invitations: map[string]*entity.Invitation{},
		checkouts:   map[string]*entity.Checkout{},
		events:      map[string]*entity.WebhookEvent{},
		profiles:    map[string]*entity.Profile{},
		authUsers:   map[string]*entity.AuthUser{},
		modules:     map[string]*entity.TenantModule{},
	}}
}

// Registry devuelve los repositorios sobre este store.
func (s *Store) Registry() repository.Registry {
	return repository.Registry{
		Tenants:       &TenantRepo{s: s},
		Memberships:   &MembershipRepo{s: s},
		Workers:       &WorkerRepo{s: s},
		Invitations:   &InvitationRepo{s: s},
		Checkouts:     &CheckoutRepo{s: s},
		WebhookEvents: &WebhookEventRepo{s: s},
		Audit:         &AuditRepo{s: s},
		Profiles:      &ProfileRepo{s: s},
		Modules:       &ModuleRepo{s: s},
	}
}

// AuthUsers repositorio del proveedor de identidad local.
func (s *Store) AuthUsers() repository.AuthUserRepository {
	return &AuthUserRepo{s: s}
}

// txView comparte el estado y los locks del store; sus escrituras no toman txMu.
func (s *Store) txView() *Store {
	return &Store{mu: s.mu, txMu: s.txMu, data: s.data, inTx: true}
}

// lockWrite toma el lock de datos y, fuera de una transacción, también txMu.
func (s *Store) lockWrite() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	audit := make([]*entity.AuditLog, len(s.data.audit))
	copy(audit, s.data.audit)
	return state{
		tenants:     cloneMap(s.data.tenants),
		memberships: cloneMap(s.data.memberships),
		workers:     cloneMap(s.data.workers),
		invitations: cloneMap(s.data.invitations),
		checkouts:   cloneMap(s.data.checkouts),
		events:      cloneMap(s.data.events),
		profiles:    cloneMap(s.data.profiles),
		authUsers:   cloneMap(s.data.authUsers),
		modules:     cloneMap(s.data.modules),
		audit:       audit,
	}
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	*s.data = st
	s.mu.Unlock()
}

func cloneMap[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// sortedValues devuelve copias ordenadas por less.
func sortedValues[T any](m map[string]*T, keep func(*T) bool, less func(a, b *T) bool) []*T {
	out := make([]*T, 0)
	for _, v := range m {
		if keep(v) {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
