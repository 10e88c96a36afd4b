// Package fakes dobles de prueba de los puertos externos (identidad, facturación, correo).
package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

var _ ports.IdentityStore = (*Identity)(nil)

// Identity proveedor de identidad en memoria con inyección de fallos.
type Identity struct {
	mu    sync.Mutex
	users map[string]*ports.IdentityUser

	FailFind   error
	FailCreate error
	FailDelete error
	FailInvite error
	FailLink   error
	FailUpdate error

	Deleted []string
	Invites []Invite
	Links   []string
	Updates map[string]ports.UpdateUserInput
}

// Invite invitación enviada.
type Invite struct {
	Email       string
	RedirectURL string
}

// NewIdentity crea el fake vacío.
func NewIdentity() *Identity {
	return &Identity{users: map[string]*ports.IdentityUser{}, Updates: map[string]ports.UpdateUserInput{}}
}

// Seed agrega un usuario confirmado y lo devuelve.
func (f *Identity) Seed(email string) *ports.IdentityUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	u := &ports.IdentityUser{ID: uuid.New().String(), Email: entity.NormalizeEmail(email), EmailConfirmedAt: &now, CreatedAt: now}
	f.users[u.ID] = u
	return u
}

// Count usuarios existentes.
func (f *Identity) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

func (f *Identity) CreateUser(_ context.Context, in ports.CreateUserInput) (*ports.IdentityUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate != nil {
		return nil, f.FailCreate
	}
	email := entity.NormalizeEmail(in.Email)
	for _, u := range f.users {
		if u.Email == email {
			return nil, domain.ErrEmailAlreadyExists
		}
	}
	now := time.Now().UTC()
	u := &ports.IdentityUser{ID: uuid.New().String(), Email: email, FullName: in.FullName, Phone: in.Phone, CreatedAt: now}
	if in.EmailConfirm {
		u.EmailConfirmedAt = &now
	}
	f.users[u.ID] = u
	c := *u
	return &c, nil
}

func (f *Identity) GetUser(_ context.Context, id string) (*ports.IdentityUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *Identity) FindUserByEmail(_ context.Context, email string) (*ports.IdentityUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFind != nil {
		return nil, f.FailFind
	}
	email = entity.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *Identity) UpdateUser(_ context.Context, id string, in ports.UpdateUserInput) (*ports.IdentityUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdate != nil {
		return nil, f.FailUpdate
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if in.FullName != "" {
		u.FullName = in.FullName
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if in.Password != "" && u.EmailConfirmedAt == nil {
		now := time.Now().UTC()
		u.EmailConfirmedAt = &now
	}
	f.Updates[id] = in
	c := *u
	return &c, nil
}

func (f *Identity) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete != nil {
		return f.FailDelete
	}
	delete(f.users, id)
	f.Deleted = append(f.Deleted, id)
	return nil
}

// InviteUserByEmail materializa un usuario pendiente, como la API admin hosted.
func (f *Identity) InviteUserByEmail(_ context.Context, email, redirectURL string, _ map[string]any) (*ports.IdentityUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailInvite != nil {
		return nil, f.FailInvite
	}
	email = entity.NormalizeEmail(email)
	f.Invites = append(f.Invites, Invite{Email: email, RedirectURL: redirectURL})
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	now := time.Now().UTC()
	u := &ports.IdentityUser{ID: uuid.New().String(), Email: email, InvitedAt: &now, CreatedAt: now}
	f.users[u.ID] = u
	c := *u
	return &c, nil
}

func (f *Identity) GenerateSignInLink(_ context.Context, email, redirectURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailLink != nil {
		return "", f.FailLink
	}
	f.Links = append(f.Links, email)
	return redirectURL + "#access_token=fake", nil
}
