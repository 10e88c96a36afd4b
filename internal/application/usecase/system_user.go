package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
)

const systemUserKey = "system_user_id"

// SystemUserResolver resuelve el usuario de sistema que figura como created_by de las
// organizaciones creadas desde un pago: id configurado, o búsqueda por email, o alta.
type SystemUserResolver struct {
	identity ports.IdentityStore
	id       string
	email    string
	cache    *cache.Cache
	mu       sync.Mutex
	log      zerolog.Logger
}

// NewSystemUserResolver construye el resolvedor. id tiene prioridad sobre email.
func NewSystemUserResolver(identity ports.IdentityStore, id, email string, log zerolog.Logger) *SystemUserResolver {
	return &SystemUserResolver{
		identity: identity,
		id:       id,
		email:    email,
		cache:    cache.New(cache.NoExpiration, 0),
		log:      log,
	}
}

// Resolve devuelve el id del usuario de sistema.
func (r *SystemUserResolver) Resolve(ctx context.Context) (string, error) {
	if r.id != "" {
		return r.id, nil
	}
	if v, ok := r.cache.Get(systemUserKey); ok {
		return v.(string), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(systemUserKey); ok {
		return v.(string), nil
	}
	if r.email == "" {
		return "", errors.New("system user: falta SYSTEM_USER_ID o SYSTEM_USER_EMAIL")
	}

	u, err := r.identity.FindUserByEmail(ctx, r.email)
	if err != nil {
		return "", domain.Upstream("identity", err)
	}
	if u == nil {
		password, err := randomPassword()
		if err != nil {
			return "", err
		}
		u, err = r.identity.CreateUser(ctx, ports.CreateUserInput{
			Email:        r.email,
			Password:     password,
			FullName:     "Sistema",
			EmailConfirm: true,
			Metadata:     map[string]any{"system": true},
		})
		if err != nil {
			return "", domain.Upstream("identity", err)
		}
		r.log.Info().Str("user_id", u.ID).Msg("usuario de sistema creado")
	}
	r.cache.SetDefault(systemUserKey, u.ID)
	return u.ID, nil
}

func randomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generar contraseña: %w", err)
	}
	return hex.EncodeToString(b), nil
}
