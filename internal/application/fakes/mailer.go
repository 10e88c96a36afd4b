package fakes

import (
	"context"
	"sync"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
)

var _ ports.Mailer = (*Mailer)(nil)

// Mailer registra los correos en lugar de enviarlos.
type Mailer struct {
	mu   sync.Mutex
	Sent []ports.MailMessage
	Fail error
}

func (m *Mailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Sent = append(m.Sent, msg)
	return nil
}
