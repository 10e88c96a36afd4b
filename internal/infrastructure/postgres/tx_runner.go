package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewRegistry arma todos los repositorios sobre q (pool o tx).
func NewRegistry(q Querier) repository.Registry {
	return repository.Registry{
		Tenants:       NewTenantRepository(q),
		Memberships:   NewMembershipRepository(q),
		Workers:       NewWorkerRepository(q),
		Invitations:   NewInvitationRepository(q),
		Checkouts:     NewCheckoutRepository(q),
		WebhookEvents: NewWebhookEventRepository(q),
		Audit:         NewAuditRepository(q),
		Profiles:      NewProfileRepository(q),
		Modules:       NewModuleRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Registry) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewRegistry(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
