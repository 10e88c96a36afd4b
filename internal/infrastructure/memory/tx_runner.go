package memory

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// TxRunner serializa las unidades de trabajo y restaura el snapshot si fn falla.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con los repos del store; ante error deshace todos los cambios de fn.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Registry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	snap := r.s.snapshot()
	if err := fn(r.s.txView().Registry()); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}
