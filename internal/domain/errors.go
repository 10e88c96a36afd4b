package domain

import (
	"errors"
	"sort"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrTenantNotFound     = errors.New("organización no encontrada")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrInvitationNotFound = errors.New("invitación no encontrada")
	ErrMembershipNotFound = errors.New("membresía no encontrada")
	ErrCheckoutNotFound   = errors.New("checkout no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	ErrEmailAlreadyExists   = errors.New("ya existe un usuario registrado con este email")
	ErrSlugTaken            = errors.New("el identificador (slug) ya está en uso")
	ErrSeatLimitReached     = errors.New("se alcanzó el límite de usuarios del plan")
	ErrMembershipExists     = errors.New("el usuario ya tiene un rol en esta organización")
	ErrInvitationExists     = errors.New("ya existe una invitación pendiente para este email y rol")
	ErrInvitationExpired    = errors.New("la invitación expiró")
	ErrInvitationConsumed   = errors.New("la invitación ya fue aceptada o revocada")
	ErrInvitationEmail      = errors.New("la invitación fue emitida para otro email")
	ErrOwnerRemoval         = errors.New("no se puede eliminar al propietario de la organización")
	ErrNoSubscription       = errors.New("la organización no tiene una suscripción asociada")
	ErrInvalidSignature     = errors.New("firma inválida")
	ErrVariantNotConfigured = errors.New("el plan no tiene una variante de facturación configurada")
)

// ValidationError agrupa los errores de validación por campo (todos, no solo el primero).
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError construye el error a partir del mapa campo → mensaje.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validación: " + strings.Join(parts, "; ")
}

// Unwrap permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// UpstreamError representa un fallo de un servicio externo (identidad, facturación, correo).
// El mensaje del servicio se propaga al cliente.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream envuelve err como fallo del servicio indicado; nil si err es nil.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return err
	}
	return &UpstreamError{Service: service, Err: err}
}
