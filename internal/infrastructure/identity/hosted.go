// Package identity adaptadores del puerto IdentityStore: API admin del proveedor hosted
// (compatible con GoTrue) y un almacén local de credenciales.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

var _ ports.IdentityStore = (*HostedClient)(nil)

const listPageSize = 200

// HostedClient cliente de la API admin autenticado con la clave de servicio.
type HostedClient struct {
	client *resty.Client
	log    zerolog.Logger
}

// NewHostedClient construye el cliente. baseURL es la URL del proyecto (sin /auth/v1).
func NewHostedClient(baseURL, serviceRoleKey string, log zerolog.Logger) *HostedClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/auth/v1").
		SetTimeout(15*time.Second).
		SetHeader("apikey", serviceRoleKey).
		SetAuthToken(serviceRoleKey).
		SetHeader("Content-Type", "application/json")
	return &HostedClient{client: client, log: log}
}

type hostedUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	InvitedAt        *time.Time     `json:"invited_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func (u *hostedUser) toPort() *ports.IdentityUser {
	if u == nil || u.ID == "" {
		return nil
	}
	out := &ports.IdentityUser{
		ID:               u.ID,
		Email:            entity.NormalizeEmail(u.Email),
		Phone:            u.Phone,
		EmailConfirmedAt: u.EmailConfirmedAt,
		InvitedAt:        u.InvitedAt,
		CreatedAt:        u.CreatedAt,
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		out.FullName = name
	}
	if out.Phone == "" {
		if phone, ok := u.UserMetadata["phone"].(string); ok {
			out.Phone = phone
		}
	}
	return out
}

type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return ""
}

// check traduce la respuesta HTTP a error. Email duplicado → domain.ErrEmailAlreadyExists.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("identity %s: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := resp.String()
	if e, ok := resp.Error().(*apiError); ok && e.text() != "" {
		msg = e.text()
	}
	lower := strings.ToLower(msg)
	if resp.StatusCode() == http.StatusUnprocessableEntity || resp.StatusCode() == http.StatusConflict || resp.StatusCode() == http.StatusBadRequest {
		if strings.Contains(lower, "already") || strings.Contains(lower, "email_exists") {
			return domain.ErrEmailAlreadyExists
		}
	}
	return fmt.Errorf("identity %s: status %d: %s", op, resp.StatusCode(), msg)
}

// CreateUser POST /admin/users.
func (c *HostedClient) CreateUser(ctx context.Context, in ports.CreateUserInput) (*ports.IdentityUser, error) {
	meta := map[string]any{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	if in.FullName != "" {
		meta["full_name"] = in.FullName
	}
	if in.Phone != "" {
		meta["phone"] = in.Phone
	}
	var out hostedUser
	resp, err := c.client.R().SetContext(ctx).
		SetBody(map[string]any{
			"email":         entity.NormalizeEmail(in.Email),
			"password":      in.Password,
			"email_confirm": in.EmailConfirm,
			"user_metadata": meta,
		}).
		SetResult(&out).SetError(&apiError{}).
		Post("/admin/users")
	if err := check("create user", resp, err); err != nil {
		return nil, err
	}
	return out.toPort(), nil
}

// GetUser GET /admin/users/{id}; 404 → (nil, nil).
func (c *HostedClient) GetUser(ctx context.Context, id string) (*ports.IdentityUser, error) {
	var out hostedUser
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).SetError(&apiError{}).
		Get("/admin/users/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := check("get user", resp, err); err != nil {
		return nil, err
	}
	return out.toPort(), nil
}

// FindUserByEmail recorre el listado paginado de usuarios y filtra por email.
func (c *HostedClient) FindUserByEmail(ctx context.Context, email string) (*ports.IdentityUser, error) {
	email = entity.NormalizeEmail(email)
	for page := 1; ; page++ {
		var out struct {
			Users []hostedUser `json:"users"`
		}
		resp, err := c.client.R().SetContext(ctx).
			SetQueryParam("page", fmt.Sprint(page)).
			SetQueryParam("per_page", fmt.Sprint(listPageSize)).
			SetResult(&out).SetError(&apiError{}).
			Get("/admin/users")
		if err := check("list users", resp, err); err != nil {
			return nil, err
		}
		for i := range out.Users {
			if entity.NormalizeEmail(out.Users[i].Email) == email {
				return out.Users[i].toPort(), nil
			}
		}
		if len(out.Users) < listPageSize {
			return nil, nil
		}
	}
}

// UpdateUser PUT /admin/users/{id}. Fijar contraseña confirma el email del invitado.
func (c *HostedClient) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*ports.IdentityUser, error) {
	body := map[string]any{}
	meta := map[string]any{}
	if in.Password != "" {
		body["password"] = in.Password
		body["email_confirm"] = true
	}
	if in.FullName != "" {
		meta["full_name"] = in.FullName
	}
	if in.Phone != "" {
		meta["phone"] = in.Phone
	}
	if len(meta) > 0 {
		body["user_metadata"] = meta
	}
	var out hostedUser
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetBody(body).
		SetResult(&out).SetError(&apiError{}).
		Put("/admin/users/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, domain.ErrUserNotFound
	}
	if err := check("update user", resp, err); err != nil {
		return nil, err
	}
	return out.toPort(), nil
}

// DeleteUser DELETE /admin/users/{id}; ya borrado no es error.
func (c *HostedClient) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.client.R().SetContext(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Delete("/admin/users/{id}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return check("delete user", resp, err)
}

// InviteUserByEmail POST /invite: el proveedor crea el usuario pendiente y envía el correo.
func (c *HostedClient) InviteUserByEmail(ctx context.Context, email, redirectURL string, metadata map[string]any) (*ports.IdentityUser, error) {
	var out hostedUser
	resp, err := c.client.R().SetContext(ctx).
		SetQueryParam("redirect_to", redirectURL).
		SetBody(map[string]any{"email": entity.NormalizeEmail(email), "data": metadata}).
		SetResult(&out).SetError(&apiError{}).
		Post("/invite")
	if err := check("invite", resp, err); err != nil {
		return nil, err
	}
	c.log.Debug().Str("email", entity.NormalizeEmail(email)).Msg("invitación enviada por el proveedor de identidad")
	return out.toPort(), nil
}

// GenerateSignInLink POST /admin/generate_link con type=magiclink.
func (c *HostedClient) GenerateSignInLink(ctx context.Context, email, redirectURL string) (string, error) {
	var out struct {
		ActionLink string `json:"action_link"`
		Properties struct {
			ActionLink string `json:"action_link"`
		} `json:"properties"`
	}
	resp, err := c.client.R().SetContext(ctx).
		SetBody(map[string]any{"type": "magiclink", "email": entity.NormalizeEmail(email), "redirect_to": redirectURL}).
		SetResult(&out).SetError(&apiError{}).
		Post("/admin/generate_link")
	if err := check("generate link", resp, err); err != nil {
		return "", err
	}
	if out.Properties.ActionLink != "" {
		return out.Properties.ActionLink, nil
	}
	return out.ActionLink, nil
}
