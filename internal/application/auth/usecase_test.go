package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/internal/application/auth"
	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/pkg/jwt"
)

type verifierStub struct {
	email, password string
	user            *ports.IdentityUser
}

func (v verifierStub) VerifyPassword(_ context.Context, email, password string) (*ports.IdentityUser, error) {
	if email != v.email || password != v.password {
		return nil, domain.ErrUnauthorized
	}
	return v.user, nil
}

func TestLogin(t *testing.T) {
	cfg := auth.JWTConfig{Secret: "secreto", ExpMinutes: 60, Issuer: "agrocloud"}
	stub := verifierStub{email: "ana@finca.co", password: "clave-segura",
		user: &ports.IdentityUser{ID: "user-1", Email: "ana@finca.co", FullName: "Ana Ruiz"}}
	uc := auth.NewLoginUseCase(stub, cfg)

	t.Run("credenciales válidas", func(t *testing.T) {
		resp, err := uc.Login(context.Background(), dto.LoginRequest{Email: " ANA@finca.co", Password: "clave-segura"})
		require.NoError(t, err)
		assert.Equal(t, "user-1", resp.User.ID)

		claims, err := jwt.Parse(cfg.Secret, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, jwt.PurposeAccess, claims.Purpose)
	})

	t.Run("contraseña incorrecta", func(t *testing.T) {
		_, err := uc.Login(context.Background(), dto.LoginRequest{Email: "ana@finca.co", Password: "otra"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("validación", func(t *testing.T) {
		_, err := uc.Login(context.Background(), dto.LoginRequest{Email: "x"})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "email")
		assert.Contains(t, verr.Fields, "password")
	})
}
